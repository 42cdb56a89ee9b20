package planners

import (
	"context"
	"errors"
	"sync"

	"github.com/zeu5/gridverse-planning/core"
)

var ErrSequenceExhausted = errors.New("action sequence exhausted")

// Sequence replays a fixed list of actions, one per call to Plan.
// With Loop set it starts over once the list is exhausted.
type Sequence[S any, A any] struct {
	Actions []A
	Loop    bool

	mu   sync.Mutex
	next int
}

var _ core.Planner[int, int] = &Sequence[int, int]{}

func NewSequence[S any, A any](actions []A, loop bool) *Sequence[S, A] {
	return &Sequence[S, A]{
		Actions: actions,
		Loop:    loop,
	}
}

func (s *Sequence[S, A]) Plan(_ context.Context, _ func() S) (A, core.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.Actions) {
		if !s.Loop || len(s.Actions) == 0 {
			var zero A
			return zero, nil, ErrSequenceExhausted
		}
		s.next = 0
	}
	a := s.Actions[s.next]
	s.next++
	return a, core.Info{"index": s.next - 1}, nil
}

type SequenceConstructor[S any, A any, O comparable] struct {
	Actions []A
	Loop    bool
}

var _ core.PlannerConstructor[int, int, int] = &SequenceConstructor[int, int, int]{}

func (c *SequenceConstructor[S, A, O]) NewPlanner(_ core.Environment[S, A, O], _ uint64) (core.Planner[S, A], error) {
	return NewSequence[S](c.Actions, c.Loop), nil
}
