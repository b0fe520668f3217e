package robust

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with this package's own structured fields,
// the way hupe1980/vecgo's Logger wraps slog.Logger for its own domain.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler
// falls back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger discards everything, for tests that don't want log noise.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)})
	return &Logger{Logger: slog.New(handler)}
}

// WithDepth adds the current tree depth to the logger's fields.
func (l *Logger) WithDepth(depth int) *Logger {
	return &Logger{Logger: l.Logger.With("depth", depth)}
}

// LogLevelSplit logs the outcome of one level's FindSplit pass at info
// level: the number of nodes searched and how many of them were split.
func (l *Logger) LogLevelSplit(ctx context.Context, depth, numNodes, numSplits int) {
	l.InfoContext(ctx, "level split complete",
		"depth", depth,
		"nodes", numNodes,
		"splits_found", numSplits,
	)
}

// LogNodeSplit logs a single node's winning split, at debug level since
// it fires once per node rather than once per level.
func (l *Logger) LogNodeSplit(ctx context.Context, nid, splitIndex int, splitValue, lossChg float64) {
	l.DebugContext(ctx, "node split",
		"nid", nid,
		"split_index", splitIndex,
		"split_value", splitValue,
		"loss_chg", lossChg,
	)
}

// LogNodeLeaf logs a node finalized as a leaf.
func (l *Logger) LogNodeLeaf(ctx context.Context, nid int, weight float64) {
	l.DebugContext(ctx, "node leaf",
		"nid", nid,
		"weight", weight,
	)
}

// LogCollectiveRound logs one Allreduce round of the distributed
// updater.
func (l *Logger) LogCollectiveRound(ctx context.Context, round, numWorkers int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collective round failed", "round", round, "workers", numWorkers, "error", err)
		return
	}
	l.DebugContext(ctx, "collective round complete", "round", round, "workers", numWorkers)
}
