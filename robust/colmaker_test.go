package robust

import (
	"context"
	"testing"
)

// sortedColumn builds a dense, fully-observed single ColBatch from
// values, which must already be sorted ascending (the builder expects
// this of every column it's handed).
func sortedColumn(values []float64) ColBatch {
	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = Entry{Index: i, FValue: v}
	}
	return ColBatch{Entries: entries, NumRow: len(values)}
}

func newTestBuilder(t *testing.T, param TrainParam) *Builder {
	eval, err := NewSplitEvaluator(param.SplitEvaluator, param)
	if err != nil {
		t.Fatal(err)
	}
	return NewBuilder(param, eval, NewPool(2), NoopLogger())
}

func TestBuilderFindsObviousSplit(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	dm := &DMatrix{Columns: []ColBatch{sortedColumn(values)}, NumRow: 8, NumCol: 1}

	gpair := make([]GradientPair, 8)
	for i := range gpair {
		if i < 4 {
			gpair[i] = GradientPair{Grad: 1, Hess: 1}
		} else {
			gpair[i] = GradientPair{Grad: -1, Hess: 1}
		}
	}

	param := DefaultTrainParam()
	param.MaxDepth = 1
	builder := newTestBuilder(t, param)

	tree := NewRegTree()
	if err := builder.Update(context.Background(), gpair, dm, tree); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	root := tree.Nodes[KRootNid]
	if root.IsLeaf() {
		t.Fatal("a dataset with an obvious separating threshold must produce a split at the root")
	}
	if root.SplitIndex != 0 {
		t.Fatalf("got split feature %d, want 0 (the only feature)", root.SplitIndex)
	}
	if root.SplitValue <= 3 || root.SplitValue > 4 {
		t.Fatalf("got split threshold %v, want something in (3,4]", root.SplitValue)
	}

	leftLeaf := tree.Nodes[root.LeftChild]
	rightLeaf := tree.Nodes[root.RightChild]
	if leftLeaf.LeafValue >= 0 {
		t.Fatalf("left child (positive gradients) should get a negative weight, got %v", leftLeaf.LeafValue)
	}
	if rightLeaf.LeafValue <= 0 {
		t.Fatalf("right child (negative gradients) should get a positive weight, got %v", rightLeaf.LeafValue)
	}
}

func TestBuilderDeterministicAcrossRepeatedRuns(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	gpair := make([]GradientPair, 10)
	for i := range gpair {
		if i < 6 {
			gpair[i] = GradientPair{Grad: 2, Hess: 1}
		} else {
			gpair[i] = GradientPair{Grad: -3, Hess: 1}
		}
	}

	param := DefaultTrainParam()
	param.MaxDepth = 2

	var splits [][2]interface{}
	for run := 0; run < 3; run++ {
		dm := &DMatrix{Columns: []ColBatch{sortedColumn(values)}, NumRow: 10, NumCol: 1}
		builder := newTestBuilder(t, param)
		tree := NewRegTree()
		if err := builder.Update(context.Background(), gpair, dm, tree); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		root := tree.Nodes[KRootNid]
		splits = append(splits, [2]interface{}{root.SplitIndex, root.SplitValue})
	}
	for i := 1; i < len(splits); i++ {
		if splits[i] != splits[0] {
			t.Fatalf("run %d produced a different root split than run 0: %v vs %v", i, splits[i], splits[0])
		}
	}
}

func TestBuilderRoutesMissingValuesByDefaultDirection(t *testing.T) {
	// Row 4 has no entry in the column at all: it is missing.
	entries := []Entry{
		{Index: 0, FValue: 0}, {Index: 1, FValue: 1}, {Index: 2, FValue: 2},
		{Index: 3, FValue: 3}, {Index: 5, FValue: 5}, {Index: 6, FValue: 6}, {Index: 7, FValue: 7},
	}
	dm := &DMatrix{Columns: []ColBatch{{Entries: entries, NumRow: 8}}, NumRow: 8, NumCol: 1}

	gpair := make([]GradientPair, 8)
	for i := range gpair {
		if i < 4 {
			gpair[i] = GradientPair{Grad: 1, Hess: 1}
		} else {
			gpair[i] = GradientPair{Grad: -1, Hess: 1}
		}
	}
	// Row 4 (missing) matches the "positive gradient" side so the
	// default direction the builder picks should route it there too.
	gpair[4] = GradientPair{Grad: 1, Hess: 1}

	param := DefaultTrainParam()
	param.MaxDepth = 1
	builder := newTestBuilder(t, param)

	tree := NewRegTree()
	if err := builder.Update(context.Background(), gpair, dm, tree); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	root := tree.Nodes[KRootNid]
	if root.IsLeaf() {
		t.Fatal("expected a split at the root")
	}
	nid, active := builder.position.Decode(4)
	if !active {
		t.Fatal("row 4 should remain active after the level that split it")
	}
	if nid != root.LeftChild {
		t.Fatalf("row 4 (missing value, matching the left group's gradient) should have been routed left, landed at node %d (left=%d right=%d)", nid, root.LeftChild, root.RightChild)
	}
}

func TestDistBuilderSingleWorkerGrowsAStructurallyEquivalentTree(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	gpair := make([]GradientPair, 8)
	for i := range gpair {
		if i < 4 {
			gpair[i] = GradientPair{Grad: 1, Hess: 1}
		} else {
			gpair[i] = GradientPair{Grad: -1, Hess: 1}
		}
	}
	param := DefaultTrainParam()
	param.MaxDepth = 1

	eval, err := NewSplitEvaluator(param.SplitEvaluator, param)
	if err != nil {
		t.Fatal(err)
	}

	dm1 := &DMatrix{Columns: []ColBatch{sortedColumn(values)}, NumRow: 8, NumCol: 1}
	plain := NewBuilder(param, eval, NewPool(2), NoopLogger())
	plainTree := NewRegTree()
	if err := plain.Update(context.Background(), gpair, dm1, plainTree); err != nil {
		t.Fatalf("Builder.Update failed: %v", err)
	}

	dm2 := &DMatrix{Columns: []ColBatch{sortedColumn(values)}, NumRow: 8, NumCol: 1}
	dist := NewDistBuilder(param, eval, NewPool(2), NoopLogger())
	distTree := NewRegTree()
	if err := dist.Update(context.Background(), gpair, dm2, distTree); err != nil {
		t.Fatalf("DistBuilder.Update failed: %v", err)
	}

	if plainTree.Nodes[KRootNid].IsLeaf() != distTree.Nodes[KRootNid].IsLeaf() {
		t.Fatal("single-worker distributed build should reach the same split/no-split decision as the plain builder")
	}
	if !plainTree.Nodes[KRootNid].IsLeaf() {
		if plainTree.Nodes[KRootNid].SplitIndex != distTree.Nodes[KRootNid].SplitIndex {
			t.Fatalf("split feature differs: plain=%d dist=%d", plainTree.Nodes[KRootNid].SplitIndex, distTree.Nodes[KRootNid].SplitIndex)
		}
		if plainTree.Nodes[KRootNid].SplitValue != distTree.Nodes[KRootNid].SplitValue {
			t.Fatalf("split value differs: plain=%v dist=%v", plainTree.Nodes[KRootNid].SplitValue, distTree.Nodes[KRootNid].SplitValue)
		}
	}
}
