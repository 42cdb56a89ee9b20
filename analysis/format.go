package analysis

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/util"
)

// dump writes content to dir/name. Failures are logged, the episode result stands.
func dump(logger *zap.Logger, dir, name string, content []byte) {
	if err := util.EnsureDir(dir); err != nil {
		logger.Warn("creating dump directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	file := path.Join(dir, name)
	if err := os.WriteFile(file, content, 0644); err != nil {
		logger.Warn("writing dump", zap.String("file", file), zap.Error(err))
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func traceToString(trace *core.Trace) string {
	var b strings.Builder
	for _, r := range trace.Records() {
		b.WriteString(recordToString(r))
		b.WriteString("\n")
	}
	return b.String()
}

func recordToString(r *core.Record) string {
	return fmt.Sprintf(
		"Timestep %d\nAction: %v\nReward: %g\nTerminal: %t\nPlanning Info:\n%sBelief Info:\n%s",
		r.Timestep,
		r.Action,
		r.Reward,
		r.Terminal,
		infoToString(r.PlanningInfo),
		infoToString(r.BeliefInfo),
	)
}

func infoToString(info core.Info) string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("  %s: %v\n", k, info[k])
	}
	return out
}
