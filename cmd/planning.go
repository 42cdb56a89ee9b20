package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeu5/gridverse-planning/belief"
	"github.com/zeu5/gridverse-planning/config"
	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/envs/gridworld"
	"github.com/zeu5/gridverse-planning/planners"
)

type planningConfig struct {
	Domain  gridworld.Config     `json:"domain"`
	Planner config.PlannerConfig `json:"planner"`
}

func checkObservability(o string) error {
	if o != "mdp" && o != "pomdp" {
		return fmt.Errorf("observability must be mdp or pomdp, got %q", o)
	}
	return nil
}

func PlanningCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planning <domain.yaml> mdp|pomdp <conf.yaml> [key=value...]",
		Short: "Run online planning, on the true state (mdp) or on a rejection sampling belief (pomdp)",
		Long: "Run online planning. Values of the planner configuration file can be " +
			"overwritten by appending key=value pairs, for example num_sims=128.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			observability := args[1]
			if err := checkObservability(observability); err != nil {
				return err
			}
			domain, err := gridworld.LoadConfig(args[0])
			if err != nil {
				return err
			}
			conf, err := config.LoadPlannerConfig(args[2], args[3:])
			if err != nil {
				return err
			}

			ctx, done := interruptContext()
			defer done()

			reg := newRegistry()
			var beliefs core.BeliefConstructor[state, action, obs]
			if observability == "pomdp" {
				opts, err := beliefOptions(reg,
					belief.WithMaxAttempts(conf.MaxAttempts),
					belief.WithWorkers(conf.BeliefWorkers),
				)
				if err != nil {
					return err
				}
				beliefs = belief.NewRejectionSamplingConstructor[state, action, obs](conf.NumParticles, opts...)
			}

			exp := core.NewExperiment[state, action, obs](
				observability,
				gridworld.NewConstructor(domain),
				planners.NewUCTConstructor[state, action, obs](conf.UCTConfig),
				beliefs,
			)
			return runExperiment(ctx, cmd.OutOrStdout(), exp, reg, observability, conf.DiscountFactor, &planningConfig{
				Domain:  domain,
				Planner: conf,
			})
		},
	}

	return cmd
}
