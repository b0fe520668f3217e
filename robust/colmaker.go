package robust

import (
	"context"
	"sort"
	"sync"
)

// Builder grows one tree, level by level, using either the robust
// feature-parallel enumerator (EnumerateSplit) or the classical
// row-chunk-parallel one (ParallelFindSplit) depending on
// TrainParam.ParallelOption.
type Builder struct {
	Param     TrainParam
	Evaluator SplitEvaluator
	Pool      *Pool
	Logger    *Logger

	position  *Position
	featIndex []int
	snode     map[int]*NodeEntry
	qexpand   []int
	gpair     []GradientPair

	mu sync.Mutex
}

// NewBuilder returns a Builder ready to grow one tree. A nil logger
// falls back to a no-op logger.
func NewBuilder(param TrainParam, evaluator SplitEvaluator, pool *Pool, logger *Logger) *Builder {
	if logger == nil {
		logger = NoopLogger()
	}
	return &Builder{Param: param, Evaluator: evaluator, Pool: pool, Logger: logger}
}

// Update grows tree in place from gpair/dm. tree must be freshly
// constructed (NewRegTree): this builder only knows how to grow a new
// tree, not continue one.
func (b *Builder) Update(ctx context.Context, gpair []GradientPair, dm *DMatrix, tree *RegTree) error {
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
		return &DataError{Reason: "Builder.Update only grows a fresh tree"}
	}

	b.gpair = gpair
	b.initData(gpair, dm)
	b.qexpand = []int{KRootNid}
	if err := b.initNewNode(b.qexpand, gpair, dm, tree); err != nil {
		return err
	}

	for depth := 0; depth < b.Param.MaxDepth; depth++ {
		if err := b.findSplit(ctx, dm, tree); err != nil {
			return err
		}
		b.resetPosition(dm, tree)
		newnodes := b.updateQueueExpand(tree)
		if err := b.initNewNode(newnodes, gpair, dm, tree); err != nil {
			return err
		}
		b.Logger.LogLevelSplit(ctx, depth, len(b.qexpand), len(newnodes)/2)
		b.qexpand = newnodes
		if len(b.qexpand) == 0 {
			break
		}
	}

	for _, nid := range b.qexpand {
		node := b.snode[nid]
		tree.SetLeaf(nid, node.Weight*b.Param.LearningRate)
		b.Logger.LogNodeLeaf(ctx, nid, node.Weight)
	}
	return nil
}

// initData sets up row positions (inactive for negative hessian or
// subsampled-out rows) and the feature subset this tree will consider
// (colsample_bytree).
func (b *Builder) initData(gpair []GradientPair, dm *DMatrix) {
	b.position = NewPosition(dm.NumRow)
	for i, g := range gpair {
		if g.Hess < 0 {
			b.position.SetInactive(i, KRootNid)
		}
	}
	if b.Param.Subsample < 1.0 {
		for i, g := range gpair {
			if g.Hess < 0 {
				continue
			}
			if Float64() >= b.Param.Subsample {
				b.position.SetInactive(i, KRootNid)
			}
		}
	}

	b.featIndex = nil
	for fid, col := range dm.Columns {
		if len(col.Entries) != 0 {
			b.featIndex = append(b.featIndex, fid)
		}
	}
	n := colsampleCount(len(b.featIndex), b.Param.ColsampleByTree)
	perm := Perm(len(b.featIndex))
	shuffled := make([]int, len(b.featIndex))
	for i, p := range perm {
		shuffled[i] = b.featIndex[p]
	}
	b.featIndex = shuffled[:n]

	b.snode = map[int]*NodeEntry{}
}

func colsampleCount(total int, fraction float64) int {
	if total == 0 {
		return 0
	}
	n := int(fraction * float64(total))
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	return n
}

// initNewNode accumulates GradStats for every row currently active at
// each id in nids, in one pass over all rows, and derives each node's
// weight and root_gain from the configured SplitEvaluator.
func (b *Builder) initNewNode(nids []int, gpair []GradientPair, dm *DMatrix, tree *RegTree) error {
	if len(nids) == 0 {
		return nil
	}
	want := map[int]bool{}
	for _, nid := range nids {
		want[nid] = true
		if _, ok := b.snode[nid]; !ok {
			ne := NewNodeEntry()
			b.snode[nid] = &ne
		} else {
			b.snode[nid].Stats.Clear()
		}
	}
	for ridx := 0; ridx < dm.NumRow; ridx++ {
		nid, active := b.position.Decode(ridx)
		if !active || !want[nid] {
			continue
		}
		b.snode[nid].Stats.Add(gpair[ridx])
	}
	for _, nid := range nids {
		node := b.snode[nid]
		node.Weight = b.Evaluator.ComputeWeight(node.Stats)
		node.RootGain = b.Evaluator.ComputeScore(node.Stats)
	}
	_ = tree
	return nil
}

// findSplit runs one level's split search across every node in
// b.qexpand and installs the winning split (or finalizes a leaf) on
// tree.
func (b *Builder) findSplit(ctx context.Context, dm *DMatrix, tree *RegTree) error {
	if err := b.computeBestSplits(ctx, dm); err != nil {
		return err
	}
	b.installSplits(ctx, tree)
	return nil
}

// computeBestSplits runs one level's local split search across every
// node in b.qexpand, leaving the winner in b.snode[nid].BestSplit
// without touching tree. Split out from findSplit so the distributed
// builder can interpose a cross-worker SyncBestSolution between local
// search and installation.
func (b *Builder) computeBestSplits(ctx context.Context, dm *DMatrix) error {
	featSet := append([]int(nil), b.featIndex...)
	if b.Param.ColsampleByLevel != 1.0 {
		perm := Perm(len(featSet))
		shuffled := make([]int, len(featSet))
		for i, p := range perm {
			shuffled[i] = featSet[p]
		}
		n := colsampleCount(len(featSet), b.Param.ColsampleByLevel)
		featSet = shuffled[:n]
	}

	poption := b.Param.ParallelOption
	if poption == ParallelAuto {
		if len(featSet)*2 < int(b.Pool.Size()) {
			poption = ParallelOverRowChunks
		} else {
			poption = ParallelOverFeatures
		}
	}

	nodeStats := map[int]GradStats{}
	for nid, n := range b.snode {
		nodeStats[nid] = n.Stats
	}

	if poption == ParallelOverFeatures {
		err := b.Pool.Run(ctx, len(featSet), func(_ context.Context, i int) error {
			fid := featSet[i]
			col := dm.Columns[fid]
			ind := col.Indicator()
			density := col.Density()

			temp := scratchSet{}
			for _, nid := range b.qexpand {
				te := NewThreadEntry()
				temp[nid] = &te
			}

			if b.Param.NeedForwardSearch(density, ind) {
				EnumerateSplit(col, forward, fid, b.gpair, b.position, nodeStats, b.Param.RobustEps, b.Param.MinChildWeight, b.snode, b.Evaluator, temp)
			}
			if b.Param.NeedBackwardSearch(density, ind) {
				EnumerateSplit(col, backward, fid, b.gpair, b.position, nodeStats, b.Param.RobustEps, b.Param.MinChildWeight, b.snode, b.Evaluator, temp)
			}

			b.mu.Lock()
			for nid, te := range temp {
				b.snode[nid].BestSplit.UpdateFrom(te.BestSplit)
			}
			b.mu.Unlock()
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		ind := map[int]bool{}
		density := map[int]float64{}
		for _, fid := range featSet {
			col := dm.Columns[fid]
			ind[fid] = col.Indicator()
			density[fid] = col.Density()
		}
		for _, fid := range featSet {
			col := dm.Columns[fid]
			needForward := b.Param.NeedForwardSearch(density[fid], ind[fid])
			needBackward := b.Param.NeedBackwardSearch(density[fid], ind[fid])
			results, err := ParallelFindSplit(ctx, b.Pool, col, fid, b.gpair, b.position, nodeStats, b.Param.MinChildWeight, b.snode, b.Evaluator, b.qexpand, needForward, needBackward)
			if err != nil {
				return err
			}
			for i, nid := range b.qexpand {
				b.snode[nid].BestSplit.UpdateFrom(results[i].BestSplit)
			}
		}
	}
	return nil
}

// installSplits applies the winning split recorded in
// b.snode[nid].BestSplit for every node in b.qexpand, or finalizes the
// node as a leaf if no split cleared the minimum-gain bar.
func (b *Builder) installSplits(ctx context.Context, tree *RegTree) {
	for _, nid := range b.qexpand {
		node := b.snode[nid]
		if node.BestSplit.LossChg > KRtEps {
			left, right := tree.AddChilds(nid)
			tree.SetSplit(nid, node.BestSplit.SplitIndex, node.BestSplit.SplitValue, node.BestSplit.DefaultLeft)
			tree.Nodes[nid].SplitGain = node.BestSplit.LossChg
			tree.SetFreshLeaf(left)
			tree.SetFreshLeaf(right)
			b.Logger.LogNodeSplit(ctx, nid, node.BestSplit.SplitIndex, node.BestSplit.SplitValue, node.BestSplit.LossChg)
		} else {
			tree.SetLeaf(nid, node.Weight*b.Param.LearningRate)
		}
	}
}

// updateQueueExpand returns the children of every node in b.qexpand
// that got split this level, i.e. the next level's work queue.
func (b *Builder) updateQueueExpand(tree *RegTree) []int {
	var newnodes []int
	for _, nid := range b.qexpand {
		if !tree.Nodes[nid].IsLeaf() {
			newnodes = append(newnodes, tree.Nodes[nid].LeftChild, tree.Nodes[nid].RightChild)
		}
	}
	return newnodes
}

// resetPosition moves every active row to its correct child after a
// level's splits have been installed, then retires rows that landed on
// a fully-settled (non-fresh) leaf.
func (b *Builder) resetPosition(dm *DMatrix, tree *RegTree) {
	b.setNonDefaultPosition(dm, tree)
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
}

// setNonDefaultPosition relocates rows that have a known (non-missing)
// value for their node's split feature directly to the correct child,
// by scanning each such feature's column once.
func (b *Builder) setNonDefaultPosition(dm *DMatrix, tree *RegTree) {
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

	for _, fid := range fids {
		col := dm.Columns[fid]
		for _, entry := range col.Entries {
			ridx := entry.Index
			nid, active := b.position.Decode(ridx)
			node := tree.Nodes[nid]
			if node.IsLeaf() || node.SplitIndex != fid {
				continue
			}
			if entry.FValue < node.SplitValue {
				b.position.SetEncoded(ridx, node.LeftChild, active)
			} else {
				b.position.SetEncoded(ridx, node.RightChild, active)
			}
		}
	}
}
