package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeu5/gridverse-planning/util"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPlannerConfig(t *testing.T) {
	path := writeFile(t, "pouct.yaml", `
num_sims: 256
exploration_constant: 2.5
discount_factor: 0.9
num_particles: 32
`)
	config, err := LoadPlannerConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 256, config.NumSimulations)
	assert.Equal(t, 2.5, config.ExplorationConstant)
	assert.Equal(t, 0.9, config.DiscountFactor)
	assert.Equal(t, 32, config.NumParticles)
	assert.Equal(t, DefaultPlannerConfig().SearchDepth, config.SearchDepth)
}

func TestLoadPlannerConfigRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "bad.yaml", "num_simulations: 3\n")
	_, err := LoadPlannerConfig(path, nil)
	assert.Error(t, err)
}

func TestOverwrites(t *testing.T) {
	path := writeFile(t, "pouct.yaml", "num_sims: 16\nexploration_constant: 1\n")
	config, err := LoadPlannerConfig(path, []string{"num_sims=128", "exploration_constant=0.5", "num_particles=8"})
	require.NoError(t, err)
	assert.Equal(t, 128, config.NumSimulations)
	assert.Equal(t, 0.5, config.ExplorationConstant)
	assert.Equal(t, 8, config.NumParticles)
}

func TestOverwriteErrors(t *testing.T) {
	cases := map[string]struct {
		overwrite string
		err       error
	}{
		"no equals":   {"num_sims", ErrMalformedOverwrite},
		"two equals":  {"num_sims=1=2", ErrMalformedOverwrite},
		"empty key":   {"=3", ErrMalformedOverwrite},
		"wrong type":  {"num_sims=many", ErrMalformedOverwrite},
		"float int":   {"num_particles=1.5", ErrMalformedOverwrite},
		"float sims":  {"num_sims=99.9", ErrMalformedOverwrite},
		"exponent":    {"search_depth=1e3", ErrMalformedOverwrite},
		"empty value": {"num_sims=", ErrMalformedOverwrite},
		"unknown key": {"depth=3", ErrUnknownKey},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			config := DefaultPlannerConfig()
			before := config
			err := config.Overwrite(c.overwrite)
			assert.ErrorIs(t, err, c.err)
			assert.Equal(t, before, config)
		})
	}
}

func TestOverwriteRejectsFractionsForIntegers(t *testing.T) {
	config := DefaultPlannerConfig()
	err := config.Overwrite("num_particles=1.5", "num_sims=99.9")
	assert.ErrorIs(t, err, ErrMalformedOverwrite)
	assert.Equal(t, DefaultPlannerConfig().NumParticles, config.NumParticles)
	assert.Equal(t, DefaultPlannerConfig().NumSimulations, config.NumSimulations)

	_, err = LoadPlannerConfig("", []string{"num_particles=2.0"})
	assert.ErrorIs(t, err, ErrMalformedOverwrite)
}

func TestOverwriteIntoFloatAcceptsIntegers(t *testing.T) {
	config := DefaultPlannerConfig()
	require.NoError(t, config.Overwrite("discount_factor=1"))
	assert.Equal(t, 1.0, config.DiscountFactor)
}

func TestValidate(t *testing.T) {
	_, err := LoadPlannerConfig("", []string{"num_particles=0"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadPlannerConfig("", []string{"num_sims=0"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadPlannerConfig("", []string{"belief_workers=0"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFlagsFromEnv(t *testing.T) {
	env := map[string]string{
		"GRIDPLAN_SAVE_PATH":       "out",
		"GRIDPLAN_EPISODES":        "42",
		"GRIDPLAN_SEED":            "7",
		"GRIDPLAN_EPISODE_TIMEOUT": "30s",
		"GRIDPLAN_DEBUG":           "true",
		"GRIDPLAN_PARALLELISM":     "not a number",
	}
	f := DefaultFlags()
	f.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	assert.Equal(t, "out", f.SavePath)
	assert.Equal(t, 42, f.Episodes)
	assert.Equal(t, uint64(7), f.Seed)
	assert.Equal(t, 30*time.Second, f.EpisodeTimeout)
	assert.True(t, f.Debug)
	assert.Equal(t, DefaultFlags().Parallelism, f.Parallelism)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "GRIDPLAN_TEST_DOTENV=loaded\n")
	t.Setenv("GRIDPLAN_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("GRIDPLAN_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("GRIDPLAN_TEST_DOTENV"))
}

func TestRecord(t *testing.T) {
	f := DefaultFlags()
	f.SavePath = t.TempDir()
	f.Episodes = 3
	require.NoError(t, f.Record())

	var loaded Flags
	require.NoError(t, util.LoadJson(filepath.Join(f.SavePath, "config.json"), &loaded))
	assert.Equal(t, *f, loaded)

	rc := f.RunConfig()
	assert.Equal(t, 3, rc.Episodes)
	assert.Equal(t, f.MaxConsecutiveErrors, rc.ThresholdConsecutiveErrors)
}
