package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zeu5/gridverse-planning/config"
)

var (
	flags *config.Flags = config.DefaultFlags()

	savePath               string
	episodes               int
	seed                   uint64
	maxConsecutiveErrors   int
	maxConsecutiveTimeouts int
	episodeTimeout         time.Duration
	parallelism            int
	debug                  bool
	logLevel               string
	metricsAddr            string
	progress               bool
)

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&savePath, "save-path", flags.SavePath, "Path to save results")
	cmd.PersistentFlags().IntVar(&episodes, "episodes", flags.Episodes, "Number of episodes")
	cmd.PersistentFlags().Uint64Var(&seed, "seed", flags.Seed, "Seed of the run, every episode derives its own seed from it")
	cmd.PersistentFlags().IntVar(&maxConsecutiveErrors, "max-consecutive-errors", flags.MaxConsecutiveErrors, "Maximum number of consecutive errors")
	cmd.PersistentFlags().IntVar(&maxConsecutiveTimeouts, "max-consecutive-timeouts", flags.MaxConsecutiveTimeouts, "Maximum number of consecutive timeouts")
	cmd.PersistentFlags().DurationVar(&episodeTimeout, "episode-timeout", flags.EpisodeTimeout, "Episode timeout")
	cmd.PersistentFlags().IntVar(&parallelism, "parallelism", flags.Parallelism, "Number of parallel episodes")
	cmd.PersistentFlags().BoolVar(&debug, "debug", flags.Debug, "Dump the trace of every episode")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", flags.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", flags.MetricsAddr, "Serve prometheus metrics on this address while running")
	cmd.PersistentFlags().BoolVar(&progress, "progress", flags.Progress, "Show live progress when writing to a terminal")
}

func UpdateFlags() {
	flags.SavePath = savePath
	flags.Episodes = episodes
	flags.Seed = seed
	flags.MaxConsecutiveErrors = maxConsecutiveErrors
	flags.MaxConsecutiveTimeouts = maxConsecutiveTimeouts
	flags.EpisodeTimeout = episodeTimeout
	flags.Parallelism = parallelism
	flags.Debug = debug
	flags.LogLevel = logLevel
	flags.MetricsAddr = metricsAddr
	flags.Progress = progress
}
