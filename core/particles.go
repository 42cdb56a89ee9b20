package core

import (
	"errors"

	"golang.org/x/exp/rand"
)

var ErrEmptyParticleSet = errors.New("empty particle set")

// ParticleSet is an ordered, fixed size collection of state hypotheses.
// Weights are implicit: a state appearing k times carries k/N of the mass.
type ParticleSet[S any] struct {
	particles []S
}

func NewParticleSet[S any](particles []S) *ParticleSet[S] {
	out := make([]S, len(particles))
	copy(out, particles)
	return &ParticleSet[S]{particles: out}
}

func (p *ParticleSet[S]) Len() int {
	return len(p.particles)
}

func (p *ParticleSet[S]) At(i int) S {
	return p.particles[i]
}

// Particles returns a copy of the particles
func (p *ParticleSet[S]) Particles() []S {
	out := make([]S, len(p.particles))
	copy(out, p.particles)
	return out
}

// Sample draws uniformly with replacement
func (p *ParticleSet[S]) Sample(rng *rand.Rand) (S, error) {
	if len(p.particles) == 0 {
		var zero S
		return zero, ErrEmptyParticleSet
	}
	return p.particles[rng.Intn(len(p.particles))], nil
}

// Contains reports whether a particle equal to s is in the set
func (p *ParticleSet[S]) Contains(s S, eq func(S, S) bool) bool {
	for _, particle := range p.particles {
		if eq(particle, s) {
			return true
		}
	}
	return false
}

// Histogram counts the multiplicity of every distinct particle, keyed by key(s)
func (p *ParticleSet[S]) Histogram(key func(S) string) map[string]int {
	out := make(map[string]int)
	for _, particle := range p.particles {
		out[key(particle)]++
	}
	return out
}
