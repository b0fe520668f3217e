package robust

import (
	"context"
	"testing"
)

func TestParallelFindSplitFindsObviousThreshold(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	col := sortedColumn(values)
	gpair := make([]GradientPair, 8)
	for i := range gpair {
		if i < 4 {
			gpair[i] = GradientPair{Grad: 1, Hess: 1}
		} else {
			gpair[i] = GradientPair{Grad: -1, Hess: 1}
		}
	}
	position := NewPosition(8)
	total := GradStats{SumGrad: 0, SumHess: 8}
	nodeStats := map[int]GradStats{KRootNid: total}
	snode := map[int]*NodeEntry{KRootNid: {Stats: total, RootGain: 0}}
	eval, err := NewSplitEvaluator("l2", TrainParam{RegLambda: 1})
	if err != nil {
		t.Fatal(err)
	}
	pool := NewPool(3)

	results, err := ParallelFindSplit(context.Background(), pool, col, 0, gpair, position, nodeStats, 1.0, snode, eval, []int{KRootNid}, true, true)
	if err != nil {
		t.Fatalf("ParallelFindSplit failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	best := results[0].BestSplit
	if !best.Valid() {
		t.Fatal("expected a candidate split")
	}
	if best.SplitIndex != 0 {
		t.Fatalf("got split feature %d, want 0", best.SplitIndex)
	}
	if best.LossChg <= 0 {
		t.Fatalf("got loss_chg %v, want > 0", best.LossChg)
	}
}

func TestReduceThreadEntriesPicksGlobalBest(t *testing.T) {
	stemp := []map[int]*ThreadEntry{
		{0: {BestSplit: SplitEntry{LossChg: 1.0, SplitIndex: 2}}},
		{0: {BestSplit: SplitEntry{LossChg: 3.0, SplitIndex: 1}}},
		{0: {BestSplit: SplitEntry{LossChg: 2.0, SplitIndex: 0}}},
	}
	got := ReduceThreadEntries(stemp, 0)
	if got.BestSplit.LossChg != 3.0 || got.BestSplit.SplitIndex != 1 {
		t.Fatalf("got %+v, want the loss_chg=3.0 candidate", got.BestSplit)
	}
}
