package analysis

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeu5/gridverse-planning/core"
)

func episode(n int, rewards ...float64) (*core.EpisodeContext, *core.Trace) {
	eCtx := core.NewEpisodeContext(context.Background())
	eCtx.Episode = n
	for i, r := range rewards {
		eCtx.Trace.AddRecord(&core.Record{
			Timestep:     i,
			Action:       "move_forward",
			Reward:       r,
			Terminal:     i == len(rewards)-1,
			PlanningInfo: core.Info{"num_simulations": 4},
			BeliefInfo:   core.Info{"attempts": 2, "accepted": 2},
		})
	}
	eCtx.Finish()
	return eCtx, eCtx.Trace
}

func failed(n int, err error) (*core.EpisodeContext, *core.Trace) {
	eCtx := core.NewEpisodeContext(context.Background())
	eCtx.Episode = n
	eCtx.Trace.AddRecord(&core.Record{Timestep: 0, Action: "turn_left"})
	eCtx.Error(err)
	return eCtx, eCtx.Trace
}

func TestReturnsAnalyzer(t *testing.T) {
	a := NewReturnsAnalyzer(0.5)
	a.Analyze(episode(0, 0, 0, 1))
	a.Analyze(episode(1, 1))
	a.Analyze(failed(2, errors.New("boom")))

	ds := a.DataSet().(*ReturnsDataset)
	assert.Equal(t, []int{0, 1}, ds.Episodes)
	assert.InDeltaSlice(t, []float64{0.25, 1}, ds.Returns, 1e-12)
	assert.Equal(t, []int{3, 4}, ds.Timesteps)
	assert.InDelta(t, 0.625, ds.Mean, 1e-12)
	assert.Greater(t, ds.StdDev, 0.0)

	a.Reset()
	assert.Empty(t, a.DataSet().(*ReturnsDataset).Returns)
}

func TestRecordsAnalyzerAndResults(t *testing.T) {
	a := NewRecordsAnalyzer()
	a.Analyze(episode(1, 0, 1))
	a.Analyze(episode(0, 0, 0, 1))
	a.Analyze(failed(2, errors.New("boom")))

	rows := a.DataSet().([]Row)
	require.Len(t, rows, 5)
	assert.Equal(t, 0, rows[0].Episode)
	assert.Equal(t, 2, rows[2].Timestep)
	assert.True(t, rows[2].Terminal)
	assert.Equal(t, "move_forward", rows[0].Action)

	path := filepath.Join(t.TempDir(), "run", "results.json")
	meta := NewMeta("pomdp", "pomdp", 0.5, map[string]int{"num_sims": 4})
	require.NoError(t, SaveResults(path, meta, rows))

	loaded, err := LoadResults(path)
	require.NoError(t, err)
	assert.Equal(t, meta.RunID, loaded.Meta.RunID)
	assert.Equal(t, meta.ConfigHash, loaded.Meta.ConfigHash)
	assert.NotEmpty(t, loaded.Meta.RunID)
	assert.Len(t, loaded.Data, 5)
	assert.EqualValues(t, 2, loaded.Data[0].BeliefInfo["accepted"])

	episodes, returns := loaded.DiscountedReturns()
	assert.Equal(t, []int{0, 1}, episodes)
	assert.InDeltaSlice(t, []float64{0.25, 0.5}, returns, 1e-12)
}

func TestPredicateAnalyzer(t *testing.T) {
	dir := t.TempDir()
	a := NewPredicateAnalyzer(dir, nil, ReachedGoal, NoReward)
	a.Analyze(episode(3, 0, 1))
	a.Analyze(episode(1, 0, 0))
	a.Analyze(episode(2, 0, 0, 1))

	ds := a.DataSet().(*PredicateDataset)
	assert.Equal(t, 3, ds.Total)
	assert.Equal(t, 2, ds.Episodes["reached_goal"])
	assert.Equal(t, 2, ds.FirstEpisode["reached_goal"])
	assert.Equal(t, 1, ds.Episodes["no_reward"])
	assert.InDelta(t, 2.0/3.0, ds.Rate("reached_goal"), 1e-12)

	_, err := os.Stat(filepath.Join(dir, "predicates", "0_reached_goal_3.txt"))
	assert.NoError(t, err)
}

func TestErrorAnalyzer(t *testing.T) {
	dir := t.TempDir()
	a := NewErrorAnalyzer(dir, "pomdp", zap.NewNop())
	a.Analyze(episode(0, 1))
	a.Analyze(failed(4, errors.New("belief update exhausted")))

	entries, err := os.ReadDir(filepath.Join(dir, "errors"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0_pomdp_error_4.txt", entries[0].Name())

	content, err := os.ReadFile(filepath.Join(dir, "errors", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "belief update exhausted")
	assert.Contains(t, string(content), "Timestep 0")
}

func TestFailedDumpsAreLogged(t *testing.T) {
	// a regular file where the dump directory should be
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0644))

	observed, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(observed)

	NewErrorAnalyzer(blocked, "pomdp", logger).Analyze(failed(2, errors.New("boom")))
	NewTraceAnalyzer(blocked, "pomdp", 0, logger).Analyze(episode(3, 1))
	NewPredicateAnalyzer(blocked, logger, ReachedGoal).Analyze(episode(4, 1))

	entries := logs.All()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Contains(t, []string{"creating dump directory", "writing dump"}, e.Message)
		assert.Equal(t, zapcore.WarnLevel, e.Level)
		assert.Contains(t, e.ContextMap(), "error")
	}
}

func TestTraceAnalyzer(t *testing.T) {
	dir := t.TempDir()
	a := NewTraceAnalyzer(dir, "", 1, nil)
	a.Analyze(episode(0, 1))
	a.Analyze(episode(1, 0, 1))

	entries, err := os.ReadDir(filepath.Join(dir, "traces"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(dir, "traces", "0_trace_1.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "accepted: 2")
	assert.Contains(t, string(content), "Timestep 1")
}

func TestSummarize(t *testing.T) {
	s := Summarize("a", []float64{4, 1, 3, 2})
	assert.Equal(t, 4, s.Episodes)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.Equal(t, 1.0, s.Box[0])
	assert.Equal(t, 4.0, s.Box[4])
	assert.LessOrEqual(t, s.Box[1], s.Box[2])
	assert.LessOrEqual(t, s.Box[2], s.Box[3])

	single := Summarize("b", []float64{1})
	assert.Zero(t, single.StdDev)
}

func TestMeanBar(t *testing.T) {
	dir := t.TempDir()
	files := make([]string, 0, 2)
	for i, discount := range []float64{0.5, 1} {
		path := filepath.Join(dir, string(rune('a'+i)), "results.json")
		rows := []Row{
			{Episode: 0, Timestep: 0, Reward: 0},
			{Episode: 0, Timestep: 1, Reward: 1, Terminal: true},
			{Episode: 1, Timestep: 0, Reward: 1, Terminal: true},
		}
		require.NoError(t, SaveResults(path, NewMeta("x", "mdp", discount, nil), rows))
		files = append(files, path)
	}

	summaries, err := SummarizeFiles(files)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.InDelta(t, 0.75, summaries[0].Mean, 1e-12)
	assert.InDelta(t, 1, summaries[1].Mean, 1e-12)

	buf := new(bytes.Buffer)
	require.NoError(t, MeanBar(buf, summaries))
	assert.Contains(t, buf.String(), "Mean discounted return")

	assert.ErrorIs(t, MeanBar(buf, nil), ErrNoResults)
	_, err = SummarizeFiles(nil)
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestRouterServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gridplan_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mean_bar.html"), []byte("<html>chart</html>"), 0644))
	r := NewRouter(reg, dir)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "gridplan_test_total 1"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/charts/mean_bar.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chart")
}
