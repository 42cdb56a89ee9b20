package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/analysis"
	"github.com/zeu5/gridverse-planning/belief"
	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/envs/gridworld"
	"github.com/zeu5/gridverse-planning/util"
)

type (
	state  = gridworld.State
	action = gridworld.Action
	obs    = gridworld.Observation
)

type experimentSummary struct {
	Experiment        string
	CompletedEpisodes int
	ErrorEpisodes     int
	TimeoutEpisodes   int
	TotalTimeSteps    int
	Error             string `json:",omitempty"`

	Returns    *analysis.ReturnsDataset
	Predicates *analysis.PredicateDataset
}

// newRegistry returns the registry served on --metrics-addr, nil when disabled
func newRegistry() *prometheus.Registry {
	if flags.MetricsAddr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

// beliefOptions appends the metrics observer when metrics are enabled
func beliefOptions(reg *prometheus.Registry, opts ...belief.Option) ([]belief.Option, error) {
	if reg == nil {
		return opts, nil
	}
	m, err := belief.NewMetricsObserver(reg)
	if err != nil {
		return nil, err
	}
	return append(opts, belief.WithObserver(m)), nil
}

// runExperiment runs exp with the configured flags, writes results.json and
// summary.json under the save path and prints a one line summary to out.
func runExperiment(
	ctx context.Context,
	out io.Writer,
	exp *core.Experiment[state, action, obs],
	reg *prometheus.Registry,
	observability string,
	discount float64,
	conf interface{},
) error {
	exp.Logger = logger
	if err := flags.Record(); err != nil {
		return fmt.Errorf("recording flags: %w", err)
	}

	exp.AddAnalysis("records", analysis.NewRecordsAnalyzer())
	exp.AddAnalysis("returns", analysis.NewReturnsAnalyzer(discount))
	predicatesPath := ""
	if flags.Debug {
		predicatesPath = flags.SavePath
		exp.AddAnalysis("traces", analysis.NewTraceAnalyzer(flags.SavePath, exp.Name, 0, logger))
	}
	exp.AddAnalysis("predicates", analysis.NewPredicateAnalyzer(predicatesPath, logger, analysis.ReachedGoal, analysis.NoReward))
	exp.AddAnalysis("errors", analysis.NewErrorAnalyzer(flags.SavePath, exp.Name, logger))

	if flags.Progress && isTerminal(os.Stdout) {
		printer := util.NewTerminalPrinter(os.Stdout, 200*time.Millisecond)
		exp.Printer = printer
		printer.Start(ctx)
		defer printer.Stop()
	}
	if reg != nil {
		serveCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := analysis.Serve(serveCtx, flags.MetricsAddr, analysis.NewRouter(reg, ""), logger); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	result := exp.Run(ctx, flags.RunConfig())

	rows, _ := result.Datasets["records"].([]analysis.Row)
	meta := analysis.NewMeta(exp.Name, observability, discount, conf)
	if err := analysis.SaveResults(path.Join(flags.SavePath, "results.json"), meta, rows); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}

	summary := &experimentSummary{
		Experiment:        exp.Name,
		CompletedEpisodes: result.CompletedEpisodes,
		ErrorEpisodes:     result.ErrorEpisodes,
		TimeoutEpisodes:   result.TimeoutEpisodes,
		TotalTimeSteps:    result.TotalTimeSteps,
	}
	summary.Returns, _ = result.Datasets["returns"].(*analysis.ReturnsDataset)
	summary.Predicates, _ = result.Datasets["predicates"].(*analysis.PredicateDataset)
	if result.Error != nil {
		summary.Error = result.Error.Error()
	}
	if err := util.SaveJson(path.Join(flags.SavePath, "summary.json"), summary); err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}

	if summary.Returns != nil && summary.Predicates != nil {
		fmt.Fprintf(out,
			"%s: %d episodes, discounted return %.3f ± %.3f, goal reached in %.0f%%, results in %s (run %s)\n",
			exp.Name,
			result.CompletedEpisodes,
			summary.Returns.Mean,
			summary.Returns.StdDev,
			100*summary.Predicates.Rate(analysis.ReachedGoal.Name),
			flags.SavePath,
			meta.RunID,
		)
	}
	return result.Error
}
