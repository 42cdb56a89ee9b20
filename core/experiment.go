package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/util"
)

type DataSet interface{}

// Analyzer consumes the traces of an experiment one episode at a time.
// Analyze is never called concurrently.
type Analyzer interface {
	Analyze(*EpisodeContext, *Trace)
	DataSet() DataSet
	Reset()
}

type RunConfig struct {
	Episodes       int
	Seed           uint64
	EpisodeTimeout time.Duration
	Parallelism    int

	ThresholdConsecutiveErrors   int
	ThresholdConsecutiveTimeouts int
}

// Experiment runs episodes of one (environment, planner, belief) combination.
// A nil Belief runs the fully observable version.
type Experiment[S any, A any, O comparable] struct {
	Name        string
	Environment EnvironmentConstructor[S, A, O]
	Planner     PlannerConstructor[S, A, O]
	Belief      BeliefConstructor[S, A, O]

	Analyzers map[string]Analyzer
	Hooks     []StepHook
	Logger    *zap.Logger
	Printer   *util.TerminalPrinter
}

func NewExperiment[S any, A any, O comparable](
	name string,
	env EnvironmentConstructor[S, A, O],
	planner PlannerConstructor[S, A, O],
	belief BeliefConstructor[S, A, O],
) *Experiment[S, A, O] {
	return &Experiment[S, A, O]{
		Name:        name,
		Environment: env,
		Planner:     planner,
		Belief:      belief,
		Analyzers:   make(map[string]Analyzer),
		Hooks:       make([]StepHook, 0),
		Logger:      zap.NewNop(),
	}
}

func (e *Experiment[S, A, O]) AddAnalysis(name string, a Analyzer) {
	e.Analyzers[name] = a
}

func (e *Experiment[S, A, O]) AddHook(h StepHook) {
	e.Hooks = append(e.Hooks, h)
}
