package planners

import (
	"context"
	"errors"

	"golang.org/x/exp/rand"

	"github.com/zeu5/gridverse-planning/core"
)

var ErrNoActions = errors.New("no actions available")

// Random picks an action uniformly at random and ignores the state
type Random[S any, A any] struct {
	actions []A
	rand    *rand.Rand
}

var _ core.Planner[int, int] = &Random[int, int]{}

func NewRandom[S any, A any](actions []A, rng *rand.Rand) *Random[S, A] {
	return &Random[S, A]{
		actions: actions,
		rand:    rng,
	}
}

func (r *Random[S, A]) Plan(_ context.Context, _ func() S) (A, core.Info, error) {
	if len(r.actions) == 0 {
		var zero A
		return zero, nil, ErrNoActions
	}
	i := r.rand.Intn(len(r.actions))
	return r.actions[i], core.Info{}, nil
}

type RandomConstructor[S any, A any, O comparable] struct{}

var _ core.PlannerConstructor[int, int, int] = &RandomConstructor[int, int, int]{}

func (r *RandomConstructor[S, A, O]) NewPlanner(env core.Environment[S, A, O], seed uint64) (core.Planner[S, A], error) {
	return NewRandom[S](env.Actions(), rand.New(rand.NewSource(seed))), nil
}
