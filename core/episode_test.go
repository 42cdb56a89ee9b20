package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/zeu5/gridverse-planning/belief"
	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/envs/gridworld"
	"github.com/zeu5/gridverse-planning/planners"
)

type (
	state  = gridworld.State
	action = gridworld.Action
	obs    = gridworld.Observation
)

func corridorConfig() gridworld.Config {
	config := gridworld.DefaultConfig()
	config.Layout = []string{
		"######",
		"#S..G#",
		"######",
	}
	config.Orientation = "east"
	return config
}

func newEnv(t *testing.T, config gridworld.Config, seed uint64) *gridworld.Env {
	t.Helper()
	env, err := gridworld.NewEnv(config, seed)
	require.NoError(t, err)
	return env
}

func newBelief(t *testing.T, env *gridworld.Env, n int, seed uint64, opts ...belief.Option) *belief.RejectionSampler[state, action, obs] {
	t.Helper()
	b, err := belief.NewRejectionSampler[state, action, obs](env, n, rand.New(rand.NewSource(seed)), opts...)
	require.NoError(t, err)
	return b
}

func forward(n int) []action {
	out := make([]action, n)
	for i := range out {
		out[i] = gridworld.MoveForward
	}
	return out
}

func TestMDPEpisodeStopsOnTerminal(t *testing.T) {
	env := newEnv(t, corridorConfig(), 1)
	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())

	// the sequence has more actions than needed, the runner must stop at the goal
	trace, err := runner.RunMDP(context.Background(), env, planners.NewSequence[state](forward(10), false))
	require.NoError(t, err)

	require.Equal(t, 3, trace.Len())
	assert.Equal(t, []float64{0, 0, 1}, trace.Rewards())
	for i, r := range trace.Records() {
		assert.Equal(t, i, r.Timestep)
		assert.Equal(t, gridworld.MoveForward, r.Action)
		assert.Equal(t, i == 2, r.Terminal)
		assert.Nil(t, r.BeliefInfo)
	}
	assert.NoError(t, trace.Error())
}

func TestPOMDPEpisodeRecordsBeliefInfo(t *testing.T) {
	env := newEnv(t, corridorConfig(), 1)
	runner := core.NewEpisodeRunner[state, action, obs](nil)

	trace, err := runner.RunPOMDP(context.Background(), env, planners.NewSequence[state](forward(10), false), newBelief(t, env, 20, 2))
	require.NoError(t, err)

	require.Equal(t, 3, trace.Len())
	for _, r := range trace.Records() {
		assert.Equal(t, 20, r.BeliefInfo["accepted"])
		assert.Contains(t, r.PlanningInfo, "index")
	}
	assert.True(t, trace.Last().Terminal)
}

func TestModeEquivalence(t *testing.T) {
	config := gridworld.DefaultConfig()
	config.Orientation = "south"
	actions := []action{
		gridworld.MoveForward, gridworld.TurnLeft, gridworld.MoveForward, gridworld.MoveForward,
		gridworld.MoveRight, gridworld.MoveForward, gridworld.MoveForward, gridworld.TurnRight,
		gridworld.MoveForward, gridworld.MoveForward,
	}
	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())

	mdpEnv := newEnv(t, config, 3)
	mdpTrace, err := runner.RunMDP(context.Background(), mdpEnv, planners.NewSequence[state](actions, true))
	require.NoError(t, err)

	pomdpEnv := newEnv(t, config, 3)
	pomdpTrace, err := runner.RunPOMDP(context.Background(), pomdpEnv, planners.NewSequence[state](actions, true), newBelief(t, pomdpEnv, 1, 4))
	require.NoError(t, err)

	assert.Equal(t, mdpTrace.Rewards(), pomdpTrace.Rewards())
	assert.Equal(t, mdpEnv.State(), pomdpEnv.State())
	assert.True(t, mdpTrace.Last().Terminal)
}

func TestPlannerSeesBeliefSamples(t *testing.T) {
	config := gridworld.DefaultConfig()
	config.Orientation = "south"
	env := newEnv(t, config, 1)
	b := newBelief(t, env, 50, 5)
	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())

	step := 0
	planner := core.PlannerFunc[state, action](func(_ context.Context, sample func() state) (action, core.Info, error) {
		// after k forward moves every particle is k cells down
		s := sample()
		assert.Equal(t, gridworld.Position{Row: step, Col: 0}, s.Agent)
		assert.Equal(t, step, s.Steps)
		step++
		if step > 3 {
			return 0, nil, planners.ErrSequenceExhausted
		}
		return gridworld.MoveForward, core.Info{}, nil
	})

	trace, err := runner.RunPOMDP(context.Background(), env, planner, b)
	assert.ErrorIs(t, err, planners.ErrSequenceExhausted)
	assert.Equal(t, 3, trace.Len())
	assert.Equal(t, 4, step)
}

var errPlanner = errors.New("planner failed")

func TestPlannerErrorPropagatesUnmodified(t *testing.T) {
	env := newEnv(t, corridorConfig(), 1)
	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())

	calls := 0
	planner := core.PlannerFunc[state, action](func(context.Context, func() state) (action, core.Info, error) {
		calls++
		if calls == 2 {
			return 0, nil, errPlanner
		}
		return gridworld.TurnLeft, nil, nil
	})
	trace, err := runner.RunMDP(context.Background(), env, planner)
	assert.Equal(t, errPlanner, err)
	assert.Equal(t, 1, trace.Len())
	assert.Equal(t, errPlanner, trace.Error())
}

func TestEnvironmentErrorPropagates(t *testing.T) {
	env := newEnv(t, corridorConfig(), 1)
	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())

	trace, err := runner.RunMDP(context.Background(), env, planners.NewSequence[state]([]action{gridworld.Action(99)}, false))
	assert.ErrorIs(t, err, gridworld.ErrInvalidAction)
	assert.Zero(t, trace.Len())
}

func TestBeliefErrorPropagatesUnmodified(t *testing.T) {
	config := corridorConfig()
	env := newEnv(t, config, 1)

	// the belief believes the agent faces west, so no particle can explain
	// the observations of an agent facing east
	wrong := config
	wrong.Orientation = "west"
	model := newEnv(t, wrong, 1)
	b, err := belief.NewRejectionSampler[state, action, obs](model, 5, rand.New(rand.NewSource(1)), belief.WithMaxAttempts(10))
	require.NoError(t, err)

	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())
	trace, err := runner.RunPOMDP(context.Background(), env, planners.NewSequence[state](forward(3), false), b)
	assert.ErrorIs(t, err, belief.ErrBeliefUpdateExhausted)
	assert.Zero(t, trace.Len())
}

func TestCancelledEpisode(t *testing.T) {
	env := newEnv(t, corridorConfig(), 1)
	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.RunMDP(ctx, env, planners.NewSequence[state](forward(3), false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHooksSeeEveryRecord(t *testing.T) {
	env := newEnv(t, corridorConfig(), 1)
	runner := core.NewEpisodeRunner[state, action, obs](zap.NewNop())

	var seen []int
	var statuses []core.EpisodeStatus
	runner.AddHook(func(eCtx *core.EpisodeContext, r *core.Record) {
		seen = append(seen, r.Timestep)
		statuses = append(statuses, eCtx.Status())
	})

	eCtx := core.NewEpisodeContext(context.Background())
	require.NoError(t, runner.RunEpisode(eCtx, env, planners.NewSequence[state](forward(3), false), nil))
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, []core.EpisodeStatus{core.Running, core.Running, core.Running}, statuses)
	assert.Equal(t, core.Terminated, eCtx.Status())
}
