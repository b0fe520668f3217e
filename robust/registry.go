package robust

import (
	"context"
	"fmt"
	"sync"
)

// TreeUpdater is the interface every registered tree grower satisfies:
// a single-tree build step over a DMatrix and gradient pairs.
type TreeUpdater interface {
	Update(ctx context.Context, gpair []GradientPair, dm *DMatrix, tree *RegTree) error
}

var (
	registryMu sync.Mutex
	registry   = map[string]func(TrainParam, SplitEvaluator, *Pool, *Logger) TreeUpdater{}
)

// RegisterUpdater adds a named TreeUpdater constructor to the
// process-wide registry. Populated by init(); the registry is immutable
// after program init finishes.
func RegisterUpdater(name string, ctor func(TrainParam, SplitEvaluator, *Pool, *Logger) TreeUpdater) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// NewUpdater constructs a registered TreeUpdater by name.
func NewUpdater(name string, param TrainParam, evaluator SplitEvaluator, pool *Pool, logger *Logger) (TreeUpdater, error) {
	registryMu.Lock()
	ctor, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("robust: unknown tree updater %q", name)
	}
	return ctor(param, evaluator, pool, logger), nil
}

func init() {
	RegisterUpdater("robust_grow_colmaker", func(p TrainParam, e SplitEvaluator, pool *Pool, l *Logger) TreeUpdater {
		return NewBuilder(p, e, pool, l)
	})
	RegisterUpdater("robust_distcol", func(p TrainParam, e SplitEvaluator, pool *Pool, l *Logger) TreeUpdater {
		return NewDistBuilder(p, e, pool, l)
	})
}
