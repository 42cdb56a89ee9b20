package belief

import "github.com/zeu5/gridverse-planning/core"

// Stats summarizes one belief update
type Stats struct {
	Particles int
	Attempts  int
	Accepted  int
}

func (s Stats) AcceptanceRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Attempts)
}

func (s Stats) Info() core.Info {
	return core.Info{
		"particles":       s.Particles,
		"attempts":        s.Attempts,
		"accepted":        s.Accepted,
		"acceptance_rate": s.AcceptanceRate(),
	}
}

// Observer is notified of the progress of a belief update. It only observes:
// nothing it does affects which samples get accepted.
// Trial is called concurrently when the update runs with several workers.
type Observer interface {
	Begin(particles int)
	Trial(accepted bool)
	End(Stats)
}

type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) Begin(int) {}
func (NopObserver) Trial(bool) {}
func (NopObserver) End(Stats) {}

// MultiObserver fans out to all its observers in order
type MultiObserver []Observer

var _ Observer = MultiObserver{}

func (m MultiObserver) Begin(particles int) {
	for _, o := range m {
		o.Begin(particles)
	}
}

func (m MultiObserver) Trial(accepted bool) {
	for _, o := range m {
		o.Trial(accepted)
	}
}

func (m MultiObserver) End(stats Stats) {
	for _, o := range m {
		o.End(stats)
	}
}
