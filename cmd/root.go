package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/config"
)

var (
	logger *zap.Logger = zap.NewNop()

	dotEnvFile  = ".env"
	buildLogger = newLogger
)

// RootCommand builds the command tree. Defaults of the persistent flags can be
// set through GRIDPLAN_* variables, read from the environment and from a .env file.
func RootCommand() *cobra.Command {
	// reported once the logger exists
	dotEnvErr := config.LoadDotEnv(dotEnvFile)
	flags = config.FromEnv()

	cmd := &cobra.Command{
		Use:           "gridplan",
		Short:         "Online planning baselines on grid worlds",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			UpdateFlags()
			l, err := buildLogger(flags.LogLevel, flags.Debug)
			if err != nil {
				return err
			}
			logger = l
			if dotEnvErr != nil {
				logger.Warn("ignoring env file", zap.String("file", dotEnvFile), zap.Error(dotEnvErr))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	AddFlags(cmd)

	cmd.AddCommand(
		RandomCommand(),
		PlanningCommand(),
		RenderCommand(),
		PlotCommand(),
	)

	return cmd
}
