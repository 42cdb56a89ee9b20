package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/envs/gridworld"
	"github.com/zeu5/gridverse-planning/planners"
)

func RandomCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "random <domain.yaml>",
		Short: "Run episodes with uniformly random actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := gridworld.LoadConfig(args[0])
			if err != nil {
				return err
			}

			ctx, done := interruptContext()
			defer done()

			exp := core.NewExperiment[state, action, obs](
				"random",
				gridworld.NewConstructor(domain),
				&planners.RandomConstructor[state, action, obs]{},
				nil,
			)
			return runExperiment(ctx, cmd.OutOrStdout(), exp, nil, "mdp", 1, domain)
		},
	}

	return cmd
}
