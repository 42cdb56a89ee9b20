package config

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/util"
)

const envPrefix = "GRIDPLAN_"

type Flags struct {
	SavePath string
	RunFlags
	Parallelism int
	Debug       bool
	LogLevel    string
	// MetricsAddr serves prometheus metrics while the experiment runs, empty disables it
	MetricsAddr string
	Progress    bool
}

type RunFlags struct {
	Episodes               int
	Seed                   uint64
	MaxConsecutiveErrors   int
	MaxConsecutiveTimeouts int
	EpisodeTimeout         time.Duration
}

func DefaultFlags() *Flags {
	return &Flags{
		SavePath: "results",
		RunFlags: RunFlags{
			Episodes:               10,
			Seed:                   0,
			MaxConsecutiveErrors:   5,
			MaxConsecutiveTimeouts: 5,
			EpisodeTimeout:         5 * time.Minute,
		},
		Parallelism: 1,
		Debug:       false,
		LogLevel:    "info",
		MetricsAddr: "",
		Progress:    true,
	}
}

// LoadDotEnv loads the given env files into the process environment.
// Missing files are ignored, variables already set are kept.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// FromEnv returns the default flags overridden by GRIDPLAN_* variables.
// Unparsable values are ignored.
func FromEnv() *Flags {
	f := DefaultFlags()
	f.applyEnv(os.LookupEnv)
	return f
}

func (f *Flags) applyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(envPrefix + key)
		return v, ok && v != ""
	}
	if v, ok := get("SAVE_PATH"); ok {
		f.SavePath = v
	}
	if v, ok := get("EPISODES"); ok {
		if i, err := strconv.Atoi(v); err == nil {
			f.Episodes = i
		}
	}
	if v, ok := get("SEED"); ok {
		if i, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.Seed = i
		}
	}
	if v, ok := get("PARALLELISM"); ok {
		if i, err := strconv.Atoi(v); err == nil {
			f.Parallelism = i
		}
	}
	if v, ok := get("EPISODE_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			f.EpisodeTimeout = d
		}
	}
	if v, ok := get("MAX_CONSECUTIVE_ERRORS"); ok {
		if i, err := strconv.Atoi(v); err == nil {
			f.MaxConsecutiveErrors = i
		}
	}
	if v, ok := get("MAX_CONSECUTIVE_TIMEOUTS"); ok {
		if i, err := strconv.Atoi(v); err == nil {
			f.MaxConsecutiveTimeouts = i
		}
	}
	if v, ok := get("DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Debug = b
		}
	}
	if v, ok := get("LOG_LEVEL"); ok {
		f.LogLevel = v
	}
	if v, ok := get("METRICS_ADDR"); ok {
		f.MetricsAddr = v
	}
	if v, ok := get("PROGRESS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Progress = b
		}
	}
}

func (f *Flags) RunConfig() *core.RunConfig {
	return &core.RunConfig{
		Episodes:                     f.Episodes,
		Seed:                         f.Seed,
		EpisodeTimeout:               f.EpisodeTimeout,
		Parallelism:                  f.Parallelism,
		ThresholdConsecutiveErrors:   f.MaxConsecutiveErrors,
		ThresholdConsecutiveTimeouts: f.MaxConsecutiveTimeouts,
	}
}

func (f *Flags) Record() error {
	return util.SaveJson(path.Join(f.SavePath, "config.json"), f)
}
