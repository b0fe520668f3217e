package robust

import (
	"context"
	"sync"
	"testing"
)

// columnShardedMatrix builds one worker's view of an 8-row, 2-feature
// DMatrix in a feature-sharded distributed layout: the worker owns
// ownedFid's column in full and sees an empty column for the other
// feature, the way RobustDistColMaker's workers each hold a disjoint
// subset of feature columns for the same full row range.
func columnShardedMatrix(ownedFid int, ownedValues []float64) *DMatrix {
	cols := make([]ColBatch, 2)
	cols[0] = ColBatch{NumRow: 8}
	cols[1] = ColBatch{NumRow: 8}
	cols[ownedFid] = sortedColumn(ownedValues)
	return &DMatrix{Columns: cols, NumRow: 8, NumCol: 2}
}

func TestDistBuilderTwoWorkersAgreeOnColumnShardedSplit(t *testing.T) {
	gpair := make([]GradientPair, 8)
	for i := range gpair {
		if i < 4 {
			gpair[i] = GradientPair{Grad: 1, Hess: 1}
		} else {
			gpair[i] = GradientPair{Grad: -1, Hess: 1}
		}
	}

	// Feature 0 (owned by worker A) cleanly separates the two gradient
	// groups; feature 1 (owned by worker B) carries no signal at all.
	dmA := columnShardedMatrix(0, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	dmB := columnShardedMatrix(1, []float64{0, 0, 0, 0, 0, 0, 0, 0})

	param := DefaultTrainParam()
	param.MaxDepth = 1
	eval, err := NewSplitEvaluator(param.SplitEvaluator, param)
	if err != nil {
		t.Fatal(err)
	}

	coll := NewLocalCollective(2)
	workerA := NewDistBuilderWorker(param, eval, NewPool(2), NoopLogger(), coll, 0)
	workerB := NewDistBuilderWorker(param, eval, NewPool(2), NoopLogger(), coll, 1)

	treeA := NewRegTree()
	treeB := NewRegTree()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = workerA.Update(context.Background(), gpair, dmA, treeA)
	}()
	go func() {
		defer wg.Done()
		errs[1] = workerB.Update(context.Background(), gpair, dmB, treeB)
	}()
	wg.Wait()

	if errs[0] != nil {
		t.Fatalf("worker A: %v", errs[0])
	}
	if errs[1] != nil {
		t.Fatalf("worker B: %v", errs[1])
	}

	rootA, rootB := treeA.Nodes[KRootNid], treeB.Nodes[KRootNid]
	if rootA.IsLeaf() || rootB.IsLeaf() {
		t.Fatal("both workers should agree a split exists")
	}
	if rootA.SplitIndex != 0 {
		t.Fatalf("the informative feature is feature 0, got split on feature %d", rootA.SplitIndex)
	}
	if rootA.SplitIndex != rootB.SplitIndex || rootA.SplitValue != rootB.SplitValue {
		t.Fatalf("workers disagree on the synchronized split: A=%+v B=%+v", rootA, rootB)
	}
}
