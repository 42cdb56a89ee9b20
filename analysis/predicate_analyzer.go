package analysis

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/core"
)

// Predicate is a named property of a finished episode
type Predicate struct {
	Name  string
	Check func(*core.Trace) bool
}

// ReachedGoal holds when the episode ended on a positive reward
var ReachedGoal = Predicate{
	Name: "reached_goal",
	Check: func(t *core.Trace) bool {
		last := t.Last()
		return last != nil && last.Terminal && last.Reward > 0
	},
}

// NoReward holds when the episode ended without any positive reward
var NoReward = Predicate{
	Name: "no_reward",
	Check: func(t *core.Trace) bool {
		for _, r := range t.Rewards() {
			if r > 0 {
				return false
			}
		}
		return t.Len() > 0
	},
}

type PredicateDataset struct {
	Episodes     map[string]int
	FirstEpisode map[string]int
	Total        int
}

func (p *PredicateDataset) Copy() *PredicateDataset {
	out := &PredicateDataset{
		Episodes:     make(map[string]int),
		FirstEpisode: make(map[string]int),
		Total:        p.Total,
	}
	for k, v := range p.Episodes {
		out.Episodes[k] = v
	}
	for k, v := range p.FirstEpisode {
		out.FirstEpisode[k] = v
	}
	return out
}

// Rate is the fraction of analyzed episodes satisfying the named predicate
func (p *PredicateDataset) Rate(name string) float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Episodes[name]) / float64(p.Total)
}

// PredicateAnalyzer counts the completed episodes satisfying each predicate.
// With a save path the traces of matching episodes are written to disk.
type PredicateAnalyzer struct {
	predicates []Predicate
	savePath   string
	dataset    *PredicateDataset
	logger     *zap.Logger
}

var _ core.Analyzer = &PredicateAnalyzer{}

func NewPredicateAnalyzer(savePath string, logger *zap.Logger, predicates ...Predicate) *PredicateAnalyzer {
	p := &PredicateAnalyzer{predicates: predicates, logger: orNop(logger)}
	if savePath != "" {
		p.savePath = path.Join(savePath, "predicates")
	}
	p.Reset()
	return p
}

func (p *PredicateAnalyzer) Reset() {
	p.dataset = &PredicateDataset{
		Episodes:     make(map[string]int),
		FirstEpisode: make(map[string]int),
	}
	for _, pred := range p.predicates {
		p.dataset.Episodes[pred.Name] = 0
		p.dataset.FirstEpisode[pred.Name] = -1
	}
}

func (p *PredicateAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if eCtx.IsError() || eCtx.IsTimeout() {
		return
	}
	p.dataset.Total++
	for _, pred := range p.predicates {
		if !pred.Check(trace) {
			continue
		}
		p.dataset.Episodes[pred.Name]++
		if first := p.dataset.FirstEpisode[pred.Name]; first == -1 || eCtx.Episode < first {
			p.dataset.FirstEpisode[pred.Name] = eCtx.Episode
		}
		if p.savePath != "" {
			fileName := fmt.Sprintf("%d_%s_%d.txt", eCtx.Run, pred.Name, eCtx.Episode)
			dump(p.logger, p.savePath, fileName, []byte(traceToString(trace)))
		}
	}
}

func (p *PredicateAnalyzer) DataSet() core.DataSet {
	return p.dataset.Copy()
}
