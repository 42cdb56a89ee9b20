package analysis

import (
	"bytes"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/core"
)

type TraceAnalyzer struct {
	// savePath is the directory the traces are written to
	savePath string
	exp      string
	// will save the trace to the file only after the episode number exceeds this threshold
	thresholdEpisode int
	logger           *zap.Logger
}

var _ core.Analyzer = &TraceAnalyzer{}

func NewTraceAnalyzer(savePath, exp string, threshold int, logger *zap.Logger) *TraceAnalyzer {
	return &TraceAnalyzer{
		savePath:         path.Join(savePath, "traces"),
		exp:              exp,
		thresholdEpisode: threshold,
		logger:           orNop(logger),
	}
}

func (a *TraceAnalyzer) Analyze(ctx *core.EpisodeContext, trace *core.Trace) {
	if ctx.Episode < a.thresholdEpisode {
		return
	}
	buf := new(bytes.Buffer)
	buf.WriteString(fmt.Sprintf("Episode %d, seed %d, status %s\n\n", ctx.Episode, ctx.Seed, ctx.Status()))
	buf.WriteString(traceToString(trace))

	fileName := fmt.Sprintf("%d_trace_%d.txt", ctx.Run, ctx.Episode)
	if a.exp != "" {
		fileName = fmt.Sprintf("%d_%s_trace_%d.txt", ctx.Run, a.exp, ctx.Episode)
	}
	dump(a.logger, a.savePath, fileName, buf.Bytes())
}

func (a *TraceAnalyzer) DataSet() core.DataSet {
	return nil
}

func (a *TraceAnalyzer) Reset() {
	// do nothing
}
