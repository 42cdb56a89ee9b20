package core

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrEpisodeReported = errors.New("episode already reported")

// StepHook observes every record as soon as it is added to the trace
type StepHook func(*EpisodeContext, *Record)

// EpisodeRunner drives one episode: planner -> environment -> belief, until the
// environment reports a terminal step. Errors of the collaborators are returned as is.
type EpisodeRunner[S any, A any, O comparable] struct {
	logger *zap.Logger
	hooks  []StepHook
}

func NewEpisodeRunner[S any, A any, O comparable](logger *zap.Logger) *EpisodeRunner[S, A, O] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EpisodeRunner[S, A, O]{
		logger: logger,
		hooks:  make([]StepHook, 0),
	}
}

func (r *EpisodeRunner[S, A, O]) AddHook(h StepHook) *EpisodeRunner[S, A, O] {
	r.hooks = append(r.hooks, h)
	return r
}

// Run executes a single episode. A nil belief runs the episode in the fully
// observable mode where the planner sees the true state.
func (r *EpisodeRunner[S, A, O]) Run(ctx context.Context, env Environment[S, A, O], planner Planner[S, A], belief Belief[S, A, O]) (*Trace, error) {
	eCtx := NewEpisodeContext(ctx)
	err := r.RunEpisode(eCtx, env, planner, belief)
	return eCtx.Trace, err
}

func (r *EpisodeRunner[S, A, O]) RunMDP(ctx context.Context, env Environment[S, A, O], planner Planner[S, A]) (*Trace, error) {
	return r.Run(ctx, env, planner, nil)
}

func (r *EpisodeRunner[S, A, O]) RunPOMDP(ctx context.Context, env Environment[S, A, O], planner Planner[S, A], belief Belief[S, A, O]) (*Trace, error) {
	return r.Run(ctx, env, planner, belief)
}

// RunEpisode runs the episode described by eCtx and appends to eCtx.Trace.
func (r *EpisodeRunner[S, A, O]) RunEpisode(eCtx *EpisodeContext, env Environment[S, A, O], planner Planner[S, A], belief Belief[S, A, O]) error {
	err := r.runEpisode(eCtx, env, planner, belief)
	if err != nil {
		eCtx.Trace.SetError(err)
	}
	return err
}

func (r *EpisodeRunner[S, A, O]) runEpisode(eCtx *EpisodeContext, env Environment[S, A, O], planner Planner[S, A], belief Belief[S, A, O]) error {
	ctx := eCtx.Context
	observable := belief == nil

	state, err := env.Reset()
	if err != nil {
		return err
	}
	sample := env.State
	if !observable {
		belief.Reset()
		sample = belief.Sample
	}
	eCtx.setStatus(Running)

	logger := r.logger.With(zap.Int("episode", eCtx.Episode), zap.Int("run", eCtx.Run))
	logger.Info("starting episode", zap.Bool("observable", observable), zap.Any("state", state))

	for timestep := 0; ; timestep++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		action, planningInfo, err := planner.Plan(ctx, sample)
		if err != nil {
			return err
		}

		reward, terminal, err := env.Step(action)
		if err != nil {
			return err
		}

		var beliefInfo Info
		if !observable {
			_, beliefInfo, err = belief.Update(ctx, action, env.Observation())
			if err != nil {
				return err
			}
		}

		record := &Record{
			Timestep:     timestep,
			Action:       action,
			Reward:       reward,
			Terminal:     terminal,
			PlanningInfo: planningInfo,
			BeliefInfo:   beliefInfo,
		}
		if !eCtx.Trace.AddRecord(record) {
			// the episode was already reported, most likely timed out
			return ErrEpisodeReported
		}

		logger.Debug("step",
			zap.Int("timestep", timestep),
			zap.Any("action", action),
			zap.Float64("reward", reward),
			zap.Bool("terminal", terminal),
		)
		for _, hook := range r.hooks {
			hook(eCtx, record)
		}

		if terminal {
			eCtx.setStatus(Terminated)
			logger.Info("episode terminated", zap.Int("timesteps", timestep+1))
			return nil
		}
	}
}
