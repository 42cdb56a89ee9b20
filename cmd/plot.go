package cmd

import (
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/analysis"
	"github.com/zeu5/gridverse-planning/util"
)

func PlotCommand() *cobra.Command {
	var out string
	var serve string

	cmd := &cobra.Command{
		Use:   "plot mean_bar <results.json...>",
		Short: "Plot the discounted returns of one or more runs",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "mean_bar" {
				return fmt.Errorf("unknown plot %q, expected mean_bar", args[0])
			}
			summaries, err := analysis.SummarizeFiles(args[1:])
			if err != nil {
				return err
			}

			if out == "" {
				out = path.Join(flags.SavePath, "mean_bar.html")
			}
			if err := util.EnsureDir(path.Dir(out)); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := analysis.MeanBar(f, summaries); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d episodes, mean %.3f, stddev %.3f\n", s.Name, s.Episodes, s.Mean, s.StdDev)
			}
			logger.Info("wrote plot", zap.String("path", out))

			if serve == "" {
				return nil
			}
			ctx, done := interruptContext()
			defer done()
			fmt.Fprintf(cmd.OutOrStdout(), "serving http://%s/charts/%s\n", serve, path.Base(out))
			return analysis.Serve(ctx, serve, analysis.NewRouter(nil, path.Dir(out)), logger)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output html file, defaults to <save-path>/mean_bar.html")
	cmd.Flags().StringVar(&serve, "serve", "", "Serve the plot on this address until interrupted")

	return cmd
}
