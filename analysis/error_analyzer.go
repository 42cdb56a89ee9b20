package analysis

import (
	"bytes"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/core"
)

// ErrorAnalyzer dumps the error and partial trace of every failed episode
type ErrorAnalyzer struct {
	savePath string
	exp      string
	logger   *zap.Logger
}

var _ core.Analyzer = &ErrorAnalyzer{}

func NewErrorAnalyzer(savePath, exp string, logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		savePath: path.Join(savePath, "errors"),
		exp:      exp,
		logger:   orNop(logger),
	}
}

func (a *ErrorAnalyzer) Analyze(ctx *core.EpisodeContext, trace *core.Trace) {
	err := ctx.Err()
	if err == nil {
		err = trace.Error()
	}
	if err == nil {
		return
	}
	buf := new(bytes.Buffer)
	if ctx.IsTimeout() {
		buf.WriteString("Timed out\n")
	}
	buf.WriteString(fmt.Sprintf("Error: %s\n\n", err))
	buf.WriteString(traceToString(trace))

	fileName := fmt.Sprintf("%d_error_%d.txt", ctx.Run, ctx.Episode)
	if a.exp != "" {
		fileName = fmt.Sprintf("%d_%s_error_%d.txt", ctx.Run, a.exp, ctx.Episode)
	}
	dump(a.logger, a.savePath, fileName, buf.Bytes())
}

func (a *ErrorAnalyzer) DataSet() core.DataSet {
	return nil
}

func (a *ErrorAnalyzer) Reset() {
	// do nothing
}
