package core

import "sync"

// Record is what happened in one timestep of an episode
type Record struct {
	Timestep     int
	Action       interface{}
	Reward       float64
	Terminal     bool
	PlanningInfo Info
	BeliefInfo   Info
}

type Trace struct {
	mtx     *sync.Mutex
	records []*Record
	err     error
	frozen  bool
}

func NewTrace() *Trace {
	return &Trace{
		records: make([]*Record, 0),
		mtx:     &sync.Mutex{},
	}
}

// AddRecord appends r and reports whether it was added. A frozen trace is left as is.
func (t *Trace) AddRecord(r *Record) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.frozen {
		return false
	}
	t.records = append(t.records, r)
	return true
}

// Freeze stops any further change to the trace
func (t *Trace) Freeze() {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.frozen = true
}

func (t *Trace) Record(i int) *Record {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.records[i]
}

func (t *Trace) Records() []*Record {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	out := make([]*Record, len(t.records))
	copy(out, t.records)
	return out
}

func (t *Trace) Len() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.records)
}

func (t *Trace) Last() *Record {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if len(t.records) == 0 {
		return nil
	}
	return t.records[len(t.records)-1]
}

// Rewards returns the reward sequence of the trace
func (t *Trace) Rewards() []float64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	out := make([]float64, len(t.records))
	for i, r := range t.records {
		out[i] = r.Reward
	}
	return out
}

// SetError records the error that ended the episode early
func (t *Trace) SetError(err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.frozen {
		return
	}
	t.err = err
}

func (t *Trace) Error() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.err
}
