package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/util"
)

type ReturnsDataset struct {
	Episodes  []int
	Returns   []float64
	Timesteps []int

	Mean   float64
	StdDev float64
}

func (d *ReturnsDataset) Copy() *ReturnsDataset {
	return &ReturnsDataset{
		Episodes:  util.CopyIntSlice(d.Episodes),
		Returns:   util.CopyFloatSlice(d.Returns),
		Timesteps: util.CopyIntSlice(d.Timesteps),
		Mean:      d.Mean,
		StdDev:    d.StdDev,
	}
}

// ReturnsAnalyzer tracks the discounted return of every completed episode
// together with the cumulative number of timesteps.
type ReturnsAnalyzer struct {
	discount float64
	dataset  *ReturnsDataset
}

var _ core.Analyzer = &ReturnsAnalyzer{}

func NewReturnsAnalyzer(discount float64) *ReturnsAnalyzer {
	a := &ReturnsAnalyzer{discount: discount}
	a.Reset()
	return a
}

func (a *ReturnsAnalyzer) Reset() {
	a.dataset = &ReturnsDataset{
		Episodes:  make([]int, 0),
		Returns:   make([]float64, 0),
		Timesteps: make([]int, 0),
	}
}

func (a *ReturnsAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if eCtx.IsError() || eCtx.IsTimeout() {
		return
	}
	ret := 0.0
	for t, r := range trace.Rewards() {
		ret += r * pow(a.discount, t)
	}
	lastTimeStep := 0
	if len(a.dataset.Timesteps) > 0 {
		lastTimeStep = a.dataset.Timesteps[len(a.dataset.Timesteps)-1]
	}
	a.dataset.Episodes = append(a.dataset.Episodes, eCtx.Episode)
	a.dataset.Returns = append(a.dataset.Returns, ret)
	a.dataset.Timesteps = append(a.dataset.Timesteps, lastTimeStep+trace.Len())
}

func (a *ReturnsAnalyzer) DataSet() core.DataSet {
	out := a.dataset.Copy()
	if len(out.Returns) > 0 {
		out.Mean, out.StdDev = stat.MeanStdDev(out.Returns, nil)
		if math.IsNaN(out.StdDev) {
			out.StdDev = 0
		}
	}
	return out
}

func pow(x float64, n int) float64 {
	return math.Pow(x, float64(n))
}
