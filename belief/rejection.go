package belief

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/zeu5/gridverse-planning/core"
)

var (
	// ErrBeliefUpdateExhausted is returned when a slot rejects more samples than
	// the configured attempt ceiling allows.
	ErrBeliefUpdateExhausted = errors.New("belief update exhausted")
	ErrInvalidParticleCount  = errors.New("number of particles must be positive")
)

type options struct {
	maxAttempts int
	workers     int
	observer    Observer
}

type Option func(*options)

// WithMaxAttempts caps the number of simulations spent on a single particle.
// Zero keeps retrying until a sample is accepted.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		o.maxAttempts = n
	}
}

// WithWorkers fills particle slots concurrently with n workers. For a fixed seed
// and worker count the resulting particle set is deterministic.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// RejectionSampler is a particle filter whose update keeps a simulated successor
// only if it emits exactly the observation that was received.
type RejectionSampler[S any, A any, O comparable] struct {
	sim       core.Simulator[S, A, O]
	n         int
	rng       *rand.Rand
	particles *core.ParticleSet[S]

	maxAttempts int
	workers     int
	observer    Observer
}

var _ core.Belief[int, int, int] = &RejectionSampler[int, int, int]{}

func NewRejectionSampler[S any, A any, O comparable](sim core.Simulator[S, A, O], n int, rng *rand.Rand, opts ...Option) (*RejectionSampler[S, A, O], error) {
	if n < 1 {
		return nil, ErrInvalidParticleCount
	}
	o := &options{
		workers:  1,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	return &RejectionSampler[S, A, O]{
		sim:         sim,
		n:           n,
		rng:         rng,
		maxAttempts: o.maxAttempts,
		workers:     o.workers,
		observer:    o.observer,
	}, nil
}

// Reset replaces the particles with n draws from the initial state distribution
func (r *RejectionSampler[S, A, O]) Reset() *core.ParticleSet[S] {
	particles := make([]S, r.n)
	for i := range particles {
		particles[i] = r.sim.FunctionalReset(r.rng)
	}
	r.particles = core.NewParticleSet(particles)
	return r.particles
}

// Sample draws a state uniformly (with replacement) from the current particles
func (r *RejectionSampler[S, A, O]) Sample() S {
	if r.particles == nil {
		r.Reset()
	}
	// the set always holds n > 0 particles
	s, _ := r.particles.Sample(r.rng)
	return s
}

func (r *RejectionSampler[S, A, O]) Particles() *core.ParticleSet[S] {
	return r.particles
}

func (r *RejectionSampler[S, A, O]) NumParticles() int {
	return r.n
}

// Update conditions the belief on having executed action and received observation.
// On error the previous particles are kept.
func (r *RejectionSampler[S, A, O]) Update(ctx context.Context, action A, observation O) (*core.ParticleSet[S], core.Info, error) {
	if r.particles == nil {
		r.Reset()
	}
	prev := r.particles
	next := make([]S, r.n)

	c := &counters{}
	r.observer.Begin(r.n)

	var err error
	if r.workers == 1 {
		err = r.fill(ctx, prev, next, 0, 1, r.rng, action, observation, c)
	} else {
		// seeds are drawn up front so the outcome does not depend on scheduling
		seeds := make([]uint64, r.workers)
		for i := range seeds {
			seeds[i] = r.rng.Uint64()
		}
		g, gCtx := errgroup.WithContext(ctx)
		for w := 0; w < r.workers; w++ {
			offset := w
			rng := rand.New(rand.NewSource(seeds[w]))
			g.Go(func() error {
				return r.fill(gCtx, prev, next, offset, r.workers, rng, action, observation, c)
			})
		}
		err = g.Wait()
	}

	stats := Stats{
		Particles: r.n,
		Attempts:  int(c.attempts.Load()),
		Accepted:  int(c.accepted.Load()),
	}
	r.observer.End(stats)
	if err != nil {
		return prev, stats.Info(), err
	}

	r.particles = core.NewParticleSet(next)
	return r.particles, stats.Info(), nil
}

type counters struct {
	attempts atomic.Int64
	accepted atomic.Int64
}

// fill populates the slots offset, offset+stride, ... of next
func (r *RejectionSampler[S, A, O]) fill(
	ctx context.Context,
	prev *core.ParticleSet[S],
	next []S,
	offset, stride int,
	rng *rand.Rand,
	action A,
	observation O,
	c *counters,
) error {
	for slot := offset; slot < len(next); slot += stride {
		for trial := 0; ; trial++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.maxAttempts > 0 && trial >= r.maxAttempts {
				return fmt.Errorf("%w: slot %d rejected %d samples", ErrBeliefUpdateExhausted, slot, trial)
			}

			s, err := prev.Sample(rng)
			if err != nil {
				return err
			}
			nextState, _, _ := r.sim.FunctionalStep(s, action, rng)
			accepted := r.sim.FunctionalObservation(nextState, rng) == observation

			c.attempts.Add(1)
			r.observer.Trial(accepted)
			if accepted {
				c.accepted.Add(1)
				next[slot] = nextState
				break
			}
		}
	}
	return nil
}

// RejectionSamplingConstructor builds one rejection sampler per episode
type RejectionSamplingConstructor[S any, A any, O comparable] struct {
	Particles int
	Options   []Option
}

var _ core.BeliefConstructor[int, int, int] = &RejectionSamplingConstructor[int, int, int]{}

func NewRejectionSamplingConstructor[S any, A any, O comparable](particles int, opts ...Option) *RejectionSamplingConstructor[S, A, O] {
	return &RejectionSamplingConstructor[S, A, O]{
		Particles: particles,
		Options:   opts,
	}
}

func (c *RejectionSamplingConstructor[S, A, O]) NewBelief(env core.Environment[S, A, O], seed uint64) (core.Belief[S, A, O], error) {
	b, err := NewRejectionSampler[S, A, O](env, c.Particles, rand.New(rand.NewSource(seed)), c.Options...)
	if err != nil {
		return nil, err
	}
	return b, nil
}
