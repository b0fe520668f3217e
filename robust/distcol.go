package robust

import (
	"context"
	"sort"
)

// DistBuilder grows one tree the way Builder does, but synchronizes the
// two steps that would otherwise diverge across column-sharded workers: the
// winning split per expanding node (SyncBestSolution) and the rows whose
// true feature value lives on a different worker's shard
// (SetNonDefaultPosition). Grounded on RobustDistColMaker::Builder,
// which subclasses RobustColMaker::Builder and overrides exactly these
// two methods plus UpdatePosition.
type DistBuilder struct {
	*Builder
	Collective Collective
	WorkerID   int
	Pruner     *Pruner
}

// NewDistBuilder returns a DistBuilder usable through the registry: a
// single simulated worker, which degenerates to Builder's result while
// still exercising the distributed code path (an Allreduce of width 1).
func NewDistBuilder(param TrainParam, evaluator SplitEvaluator, pool *Pool, logger *Logger) *DistBuilder {
	return NewDistBuilderWorker(param, evaluator, pool, logger, NewLocalCollective(1), 0)
}

// NewDistBuilderWorker returns a DistBuilder bound to one worker of a
// Collective shared with the other workers, for growing a tree
// cooperatively from feature-disjoint column shards over the same rows.
func NewDistBuilderWorker(param TrainParam, evaluator SplitEvaluator, pool *Pool, logger *Logger, coll Collective, workerID int) *DistBuilder {
	return &DistBuilder{
		Builder:    NewBuilder(param, evaluator, pool, logger),
		Collective: coll,
		WorkerID:   workerID,
		Pruner:     NewPruner(param.MinSplitLoss),
	}
}

// Update grows tree in place, synchronizing with the rest of Collective
// once per level: every worker computes a locally-best split per
// expanding node, SyncBestSolution reduces those into one global winner
// that every worker installs identically, and SetNonDefaultPosition ORs
// every worker's "this row needs the non-default branch" bitmap so a row
// whose value for the splitting feature lives on another shard still
// gets routed correctly.
func (b *DistBuilder) Update(ctx context.Context, gpair []GradientPair, dm *DMatrix, tree *RegTree) error {
	if err := b.Param.Validate(); err != nil {
		return err
	}
	if err := dm.Validate(); err != nil {
		return err
	}
	if len(gpair) != dm.NumRow {
		return &DataError{Reason: "gradient slice length does not match DMatrix row count"}
	}
	if len(tree.Nodes) != 1 {
		return &DataError{Reason: "DistBuilder.Update only grows a fresh tree"}
	}

	b.gpair = gpair
	b.initData(gpair, dm)
	b.qexpand = []int{KRootNid}
	if err := b.initNewNode(b.qexpand, gpair, dm, tree); err != nil {
		return err
	}

	for depth := 0; depth < b.Param.MaxDepth; depth++ {
		if err := b.computeBestSplits(ctx, dm); err != nil {
			return err
		}
		if err := b.syncBestSolution(ctx); err != nil {
			return err
		}
		b.installSplits(ctx, tree)

		if err := b.resetPositionDist(ctx, dm, tree); err != nil {
			return err
		}
		b.updatePositionDist(tree)

		newnodes := b.updateQueueExpand(tree)
		if err := b.initNewNode(newnodes, gpair, dm, tree); err != nil {
			return err
		}
		b.Logger.LogLevelSplit(ctx, depth, len(b.qexpand), len(newnodes)/2)
		b.qexpand = newnodes
		b.Logger.LogCollectiveRound(ctx, depth, b.Collective.NumWorkers(), nil)
		if len(b.qexpand) == 0 {
			break
		}
	}

	for _, nid := range b.qexpand {
		node := b.snode[nid]
		tree.SetLeaf(nid, node.Weight*b.Param.LearningRate)
		b.Logger.LogNodeLeaf(ctx, nid, node.Weight)
	}

	b.Pruner.Prune(tree)
	return nil
}

// syncBestSolution Allreduces the locally-best SplitEntry of every node
// in b.qexpand across Collective and installs the merged winner back
// into b.snode, so every worker installs the same split.
func (b *DistBuilder) syncBestSolution(ctx context.Context) error {
	if len(b.qexpand) == 0 {
		return nil
	}
	local := make([]SplitEntry, len(b.qexpand))
	for i, nid := range b.qexpand {
		local[i] = b.snode[nid].BestSplit
	}
	merged, err := b.Collective.AllreduceSplitEntries(ctx, local)
	if err != nil {
		return &CollectiveError{Reason: err.Error()}
	}
	for i, nid := range b.qexpand {
		b.snode[nid].BestSplit = merged[i]
	}
	return nil
}

// resetPositionDist is the distributed analogue of Builder.resetPosition:
// the cross-worker bitmap exchange in setNonDefaultPositionDist takes the
// place of the single-process feature-column scan, followed by the same
// default-branch pass that pushes any row SetNonDefaultPositionDist
// didn't touch (because no worker holds a known value for it) along its
// node's default direction, and retires rows that land on a
// fully-settled leaf.
func (b *DistBuilder) resetPositionDist(ctx context.Context, dm *DMatrix, tree *RegTree) error {
	if err := b.setNonDefaultPositionDist(ctx, dm, tree); err != nil {
		return err
	}
	for ridx := 0; ridx < dm.NumRow; ridx++ {
		nid, active := b.position.Decode(ridx)
		if !active {
			continue
		}
		node := tree.Nodes[nid]
		if node.IsLeaf() {
			if !node.Fresh {
				b.position.SetInactive(ridx, nid)
			}
			continue
		}
		if node.DefaultLeft {
			b.position.SetPreserveActive(ridx, node.LeftChild)
		} else {
			b.position.SetPreserveActive(ridx, node.RightChild)
		}
	}
	return nil
}

// setNonDefaultPositionDist mirrors Builder.setNonDefaultPosition, but a
// row whose split feature is missing on this worker's shard can still
// have a known value on another worker's shard: every worker scans only
// the entries it holds, marks a row needing the *non-default* branch,
// ORs that bitmap against every other worker's, and only then routes
// rows according to the merged result.
func (b *DistBuilder) setNonDefaultPositionDist(ctx context.Context, dm *DMatrix, tree *RegTree) error {
	fsplits := map[int]bool{}
	for _, nid := range b.qexpand {
		if !tree.Nodes[nid].IsLeaf() {
			fsplits[tree.Nodes[nid].SplitIndex] = true
		}
	}
	fids := make([]int, 0, len(fsplits))
	for fid := range fsplits {
		fids = append(fids, fid)
	}
	sort.Ints(fids)

	local := NewRowBitmap()
	for _, fid := range fids {
		col := dm.Columns[fid]
		for _, entry := range col.Entries {
			ridx := entry.Index
			nid, _ := b.position.Decode(ridx)
			node := tree.Nodes[nid]
			if node.IsLeaf() || node.SplitIndex != fid {
				continue
			}
			if entry.FValue < node.SplitValue {
				if !node.DefaultLeft {
					local.Set(ridx)
				}
			} else {
				if node.DefaultLeft {
					local.Set(ridx)
				}
			}
		}
	}

	merged, err := b.Collective.AllreduceBitOR(ctx, local)
	if err != nil {
		return &CollectiveError{Reason: err.Error()}
	}

	for ridx := 0; ridx < b.position.NumRow(); ridx++ {
		if !merged.Contains(ridx) {
			continue
		}
		nid, active := b.position.Decode(ridx)
		node := tree.Nodes[nid]
		if node.IsLeaf() {
			return &CollectiveError{Reason: "inconsistent reduce: row routed off a leaf"}
		}
		if node.DefaultLeft {
			b.position.SetEncoded(ridx, node.RightChild, active)
		} else {
			b.position.SetEncoded(ridx, node.LeftChild, active)
		}
	}
	return nil
}

// updatePositionDist walks every row's position past any node deleted
// by a previous round's pruning, following Parent links up to the
// nearest surviving ancestor. Builder's single-process resetPosition has
// no need for this since a node is never deleted mid-build there; the
// distributed builder prunes the whole tree only after all levels are
// grown, so this is a no-op until Prune runs.
func (b *DistBuilder) updatePositionDist(tree *RegTree) {
	for ridx := 0; ridx < b.position.NumRow(); ridx++ {
		nid, active := b.position.Decode(ridx)
		for tree.Nodes[nid].Deleted {
			nid = tree.Nodes[nid].Parent
		}
		b.position.SetEncoded(ridx, nid, active)
	}
}
