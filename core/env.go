package core

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/rand"
)

// Simulator is the generative model of an environment. The same model drives the
// real environment and the particle filter.
type Simulator[S any, A any, O comparable] interface {
	// FunctionalReset samples an initial state
	FunctionalReset(*rand.Rand) S
	// FunctionalStep returns the next state, the reward and whether the next state is terminal
	FunctionalStep(S, A, *rand.Rand) (S, float64, bool)
	// FunctionalObservation samples an observation emitted in the given state
	FunctionalObservation(S, *rand.Rand) O
}

// Environment is the real (stateful) environment the agent interacts with.
type Environment[S any, A any, O comparable] interface {
	Simulator[S, A, O]

	Reset() (S, error)
	Step(A) (float64, bool, error)
	State() S
	Observation() O
	Actions() []A
}

type EpisodeStatus int

const (
	NotStarted EpisodeStatus = iota
	Running
	Terminated
)

func (s EpisodeStatus) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

type EpisodeContext struct {
	Context context.Context
	Episode int
	Run     int
	Seed    uint64

	Trace *Trace

	status  atomic.Int32
	err     error
	timeout bool
	once    sync.Once
	doneCh  chan struct{}
}

func NewEpisodeContext(ctx context.Context) *EpisodeContext {
	return &EpisodeContext{
		Context: ctx,
		Trace:   NewTrace(),
		doneCh:  make(chan struct{}),
	}
}

func (e *EpisodeContext) Status() EpisodeStatus {
	return EpisodeStatus(e.status.Load())
}

func (e *EpisodeContext) setStatus(s EpisodeStatus) {
	e.status.Store(int32(s))
}

// Error, Timeout and Finish end the episode. Only the first call has an effect.
func (e *EpisodeContext) Error(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.doneCh)
	})
}

func (e *EpisodeContext) Timeout() {
	e.once.Do(func() {
		e.timeout = true
		close(e.doneCh)
	})
}

func (e *EpisodeContext) Finish() {
	e.once.Do(func() {
		close(e.doneCh)
	})
}

// Err is valid once Done is closed
func (e *EpisodeContext) Err() error {
	return e.err
}

func (e *EpisodeContext) IsError() bool {
	return e.err != nil
}

func (e *EpisodeContext) IsTimeout() bool {
	return e.timeout
}

func (e *EpisodeContext) Done() <-chan struct{} {
	return e.doneCh
}

// EnvironmentConstructor creates a fresh environment for every episode.
type EnvironmentConstructor[S any, A any, O comparable] interface {
	NewEnvironment(seed uint64) (Environment[S, A, O], error)
}
