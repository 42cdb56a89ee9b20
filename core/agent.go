package core

import (
	"context"
)

// Info carries diagnostics produced by planners and belief updates.
type Info map[string]interface{}

// Planner picks an action given a way to sample (hypothetical) current states.
// In the fully observable setting sample returns the true state.
type Planner[S any, A any] interface {
	Plan(ctx context.Context, sample func() S) (A, Info, error)
}

type PlannerFunc[S any, A any] func(context.Context, func() S) (A, Info, error)

func (f PlannerFunc[S, A]) Plan(ctx context.Context, sample func() S) (A, Info, error) {
	return f(ctx, sample)
}

// Belief tracks a particle approximation of the state posterior.
// A belief is owned by a single episode and mutated only by its runner.
type Belief[S any, A any, O comparable] interface {
	Reset() *ParticleSet[S]
	Sample() S
	Update(ctx context.Context, action A, observation O) (*ParticleSet[S], Info, error)
}

type PlannerConstructor[S any, A any, O comparable] interface {
	NewPlanner(env Environment[S, A, O], seed uint64) (Planner[S, A], error)
}

type BeliefConstructor[S any, A any, O comparable] interface {
	NewBelief(env Environment[S, A, O], seed uint64) (Belief[S, A, O], error)
}
