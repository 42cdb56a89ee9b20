package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/util"
)

var (
	ErrTooManyTimeouts = errors.New("too many timeouts")
	ErrTooManyErrors   = errors.New("too many errors")
	ErrCancelled       = errors.New("context cancelled")
)

type ExperimentResult struct {
	CompletedEpisodes int
	TotalEpisodes     int
	ErrorEpisodes     int
	TimeoutEpisodes   int
	TotalTimeSteps    int

	Error    error
	Datasets map[string]DataSet
}

func (r *ExperimentResult) IsError() bool {
	return r.Error != nil
}

// EpisodeSeed derives the seed of an episode from the seed of the run.
// Episodes get independent seeds regardless of which worker runs them.
func EpisodeSeed(seed uint64, episode int) uint64 {
	return seed ^ (uint64(episode+1) * 0x9E3779B97F4A7C15)
}

// Run executes config.Episodes episodes over config.Parallelism workers and feeds
// every finished episode to the analyzers.
func (e *Experiment[S, A, O]) Run(ctx context.Context, config *RunConfig) *ExperimentResult {
	result := &ExperimentResult{
		Datasets: make(map[string]DataSet),
	}
	for _, a := range e.Analyzers {
		a.Reset()
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("experiment", e.Name))

	parallelism := config.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workCh := make(chan int, parallelism)
	resultsCh := make(chan *EpisodeContext, parallelism)
	wg := new(sync.WaitGroup)

	for i := 0; i < parallelism; i++ {
		w := e.newWorker(i, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(runCtx, config, workCh, resultsCh)
		}()
	}

	go func() {
		defer close(workCh)
		for episode := 0; episode < config.Episodes; episode++ {
			select {
			case <-runCtx.Done():
				return
			case workCh <- episode:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	consecutiveErrors := 0
	consecutiveTimeouts := 0
	for eCtx := range resultsCh {
		if result.Error != nil {
			// draining after a threshold was crossed
			continue
		}
		result.TotalEpisodes++

		timedout := eCtx.IsTimeout() || errors.Is(eCtx.Err(), context.DeadlineExceeded)
		errored := !timedout && eCtx.IsError()

		if errored {
			result.ErrorEpisodes++
			logger.Warn("episode failed", zap.Int("episode", eCtx.Episode), zap.Error(eCtx.Err()))
			if consecutiveErrors++; config.ThresholdConsecutiveErrors > 0 && consecutiveErrors >= config.ThresholdConsecutiveErrors {
				result.Error = ErrTooManyErrors
				cancel()
			}
		} else {
			consecutiveErrors = 0
		}
		if timedout {
			result.TimeoutEpisodes++
			logger.Warn("episode timed out", zap.Int("episode", eCtx.Episode))
			if consecutiveTimeouts++; config.ThresholdConsecutiveTimeouts > 0 && consecutiveTimeouts >= config.ThresholdConsecutiveTimeouts {
				result.Error = ErrTooManyTimeouts
				cancel()
			}
		} else {
			consecutiveTimeouts = 0
		}

		if !errored && !timedout {
			result.TotalTimeSteps += eCtx.Trace.Len()
			result.CompletedEpisodes++
		}

		for _, a := range e.Analyzers {
			a.Analyze(eCtx, eCtx.Trace)
		}
	}

	if result.Error == nil && ctx.Err() != nil {
		result.Error = ErrCancelled
	}
	if result.Error != nil {
		logger.Error("experiment stopped", zap.Error(result.Error))
	}
	logger.Info("experiment finished",
		zap.Int("completed", result.CompletedEpisodes),
		zap.Int("errors", result.ErrorEpisodes),
		zap.Int("timeouts", result.TimeoutEpisodes),
		zap.Int("timesteps", result.TotalTimeSteps),
	)

	for name, a := range e.Analyzers {
		result.Datasets[name] = a.DataSet()
	}
	return result
}

// episodeWorker runs whole episodes, each with its own environment, planner and belief
type episodeWorker[S any, A any, O comparable] struct {
	id         int
	experiment *Experiment[S, A, O]
	runner     *EpisodeRunner[S, A, O]
}

func (e *Experiment[S, A, O]) newWorker(id int, logger *zap.Logger) *episodeWorker[S, A, O] {
	runner := NewEpisodeRunner[S, A, O](logger.With(zap.Int("worker", id)))
	for _, h := range e.Hooks {
		runner.AddHook(h)
	}
	if e.Printer != nil {
		output := e.Printer.NewOutput()
		runner.AddHook(statusHook(e.Name, id, output))
	}
	return &episodeWorker[S, A, O]{
		id:         id,
		experiment: e,
		runner:     runner,
	}
}

func statusHook(name string, worker int, output *util.ParallelOutput) StepHook {
	return func(eCtx *EpisodeContext, r *Record) {
		output.TrySet(fmt.Sprintf(
			"Experiment: %s, Worker %d, Episode %d, Timestep %d, Reward %.2f",
			name, worker, eCtx.Episode, r.Timestep, r.Reward,
		))
	}
}

func (w *episodeWorker[S, A, O]) run(ctx context.Context, config *RunConfig, workCh <-chan int, resultsCh chan<- *EpisodeContext) {
	for {
		select {
		case <-ctx.Done():
			return
		case episode, more := <-workCh:
			if !more {
				return
			}
			eCtx := w.runEpisode(ctx, config, episode)
			select {
			case resultsCh <- eCtx:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *episodeWorker[S, A, O]) runEpisode(ctx context.Context, config *RunConfig, episode int) *EpisodeContext {
	var episodeCtx context.Context
	var cancel context.CancelFunc
	if config.EpisodeTimeout > 0 {
		episodeCtx, cancel = context.WithTimeout(ctx, config.EpisodeTimeout)
	} else {
		episodeCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	eCtx := NewEpisodeContext(episodeCtx)
	eCtx.Episode = episode
	eCtx.Seed = EpisodeSeed(config.Seed, episode)

	go w.execute(eCtx)

	select {
	case <-eCtx.Done():
	case <-episodeCtx.Done():
		if errors.Is(episodeCtx.Err(), context.DeadlineExceeded) {
			eCtx.Timeout()
		} else {
			eCtx.Error(episodeCtx.Err())
		}
	}
	eCtx.Trace.Freeze()
	return eCtx
}

func (w *episodeWorker[S, A, O]) execute(eCtx *EpisodeContext) {
	exp := w.experiment
	env, err := exp.Environment.NewEnvironment(eCtx.Seed)
	if err != nil {
		eCtx.Error(fmt.Errorf("creating environment: %w", err))
		return
	}
	planner, err := exp.Planner.NewPlanner(env, eCtx.Seed+1)
	if err != nil {
		eCtx.Error(fmt.Errorf("creating planner: %w", err))
		return
	}
	var belief Belief[S, A, O]
	if exp.Belief != nil {
		belief, err = exp.Belief.NewBelief(env, eCtx.Seed+2)
		if err != nil {
			eCtx.Error(fmt.Errorf("creating belief: %w", err))
			return
		}
	}
	if err := w.runner.RunEpisode(eCtx, env, planner, belief); err != nil {
		eCtx.Error(err)
		return
	}
	eCtx.Finish()
}
