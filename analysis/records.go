package analysis

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/util"
)

// Row is one timestep of one episode as stored in results.json
type Row struct {
	Episode      int       `json:"episode"`
	Timestep     int       `json:"timestep"`
	Action       string    `json:"action"`
	Reward       float64   `json:"reward"`
	Terminal     bool      `json:"terminal"`
	PlanningInfo core.Info `json:"planning_info,omitempty"`
	BeliefInfo   core.Info `json:"belief_info,omitempty"`
}

type Meta struct {
	RunID          string      `json:"run_id"`
	Experiment     string      `json:"experiment"`
	Observability  string      `json:"observability"`
	DiscountFactor float64     `json:"discount_factor"`
	Config         interface{} `json:"config"`
	ConfigHash     string      `json:"config_hash"`
}

func NewMeta(experiment, observability string, discount float64, config interface{}) Meta {
	return Meta{
		RunID:          uuid.NewString(),
		Experiment:     experiment,
		Observability:  observability,
		DiscountFactor: discount,
		Config:         config,
		ConfigHash:     util.JsonHash(config),
	}
}

type Results struct {
	Meta Meta  `json:"meta"`
	Data []Row `json:"data"`
}

// RecordsAnalyzer collects the records of all the episodes that ran to completion
type RecordsAnalyzer struct {
	rows []Row
}

var _ core.Analyzer = &RecordsAnalyzer{}

func NewRecordsAnalyzer() *RecordsAnalyzer {
	return &RecordsAnalyzer{
		rows: make([]Row, 0),
	}
}

func (a *RecordsAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if eCtx.IsError() || eCtx.IsTimeout() {
		return
	}
	for _, r := range trace.Records() {
		a.rows = append(a.rows, Row{
			Episode:      eCtx.Episode,
			Timestep:     r.Timestep,
			Action:       fmt.Sprint(r.Action),
			Reward:       r.Reward,
			Terminal:     r.Terminal,
			PlanningInfo: r.PlanningInfo,
			BeliefInfo:   r.BeliefInfo,
		})
	}
}

// DataSet returns the rows sorted by episode and timestep
func (a *RecordsAnalyzer) DataSet() core.DataSet {
	out := make([]Row, len(a.rows))
	copy(out, a.rows)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Episode != out[j].Episode {
			return out[i].Episode < out[j].Episode
		}
		return out[i].Timestep < out[j].Timestep
	})
	return out
}

func (a *RecordsAnalyzer) Reset() {
	a.rows = make([]Row, 0)
}

func SaveResults(path string, meta Meta, rows []Row) error {
	return util.SaveJson(path, &Results{Meta: meta, Data: rows})
}

func LoadResults(path string) (*Results, error) {
	results := &Results{}
	if err := util.LoadJson(path, results); err != nil {
		return nil, err
	}
	return results, nil
}

// DiscountedReturns sums reward * discount^timestep per episode. Episodes are
// returned in increasing order.
func (r *Results) DiscountedReturns() ([]int, []float64) {
	returns := make(map[int]float64)
	for _, row := range r.Data {
		returns[row.Episode] += row.Reward * pow(r.Meta.DiscountFactor, row.Timestep)
	}
	episodes := make([]int, 0, len(returns))
	for e := range returns {
		episodes = append(episodes, e)
	}
	sort.Ints(episodes)
	out := make([]float64, len(episodes))
	for i, e := range episodes {
		out[i] = returns[e]
	}
	return episodes, out
}
