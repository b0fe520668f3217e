package robust

import "context"

// ParallelFindSplit is the classical, non-robust split enumerator:
// instead of parallelizing across features, it splits one feature's
// column into nthread row-chunks and finds the best split for every
// active node in three barrier-separated phases: local accumulate,
// prefix-reduce across chunk boundaries, then a rescan that emits
// candidates. It ignores robust_eps entirely, which is why
// TrainParam.Validate forbids combining it with robust_eps > 0.
func ParallelFindSplit(
	ctx context.Context,
	pool *Pool,
	col ColBatch,
	fid int,
	gpair []GradientPair,
	position *Position,
	nodeStats map[int]GradStats,
	minChildWeight float64,
	snode map[int]*NodeEntry,
	evaluator SplitEvaluator,
	qexpand []int,
	needForward, needBackward bool,
) ([]ThreadEntry, error) {
	entries := col.Entries
	n := len(entries)
	nthread := int(pool.Size())
	if nthread < 1 {
		nthread = 1
	}
	if n < nthread {
		nthread = n
	}
	if nthread < 1 {
		nthread = 1
	}

	stemp := make([]map[int]*ThreadEntry, nthread)
	for t := range stemp {
		stemp[t] = map[int]*ThreadEntry{}
		for _, nid := range qexpand {
			te := NewThreadEntry()
			stemp[t][nid] = &te
		}
	}

	step := (n + nthread - 1) / nthread

	// phase 1: local accumulate, one row-chunk per goroutine.
	err := pool.Run(ctx, nthread, func(_ context.Context, tid int) error {
		temp := stemp[tid]
		lo := tid * step
		hi := lo + step
		if hi > n {
			hi = n
		}
		for i := lo; i < hi; i++ {
			ridx := entries[i].Index
			nid, active := position.Decode(ridx)
			if !active {
				continue
			}
			fvalue := entries[i].FValue
			e := temp[nid]
			if e.Stats.Empty() {
				e.FirstFValue = fvalue
			}
			e.Stats.Add(gpair[ridx])
			e.LastFValue = fvalue
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// phase 2: prefix-reduce across chunk boundaries, per node. Small
	// enough (len(qexpand) * nthread) to run on the calling goroutine
	// without a second pool round for typical qexpand sizes.
	for _, nid := range qexpand {
		var sum, tmp, c GradStats
		for t := 0; t < nthread; t++ {
			tmp = stemp[t][nid].Stats
			stemp[t][nid].Stats = sum
			sum.AddStats(tmp)
			if t != 0 {
				stemp[t-1][nid].LastFValue, stemp[t][nid].FirstFValue =
					stemp[t][nid].FirstFValue, stemp[t-1][nid].LastFValue
			}
		}
		for t := 0; t < nthread; t++ {
			e := stemp[t][nid]
			e.StatsLeft = sum // stats_extra: the node's total over every chunk
			var fsplit float64
			if t != 0 {
				if stemp[t-1][nid].LastFValue != e.FirstFValue {
					fsplit = (stemp[t-1][nid].LastFValue + e.FirstFValue) * 0.5
				} else {
					continue
				}
			} else {
				fsplit = e.FirstFValue - KRtEps
			}
			if needForward && t != 0 {
				c = Sub(nodeStats[nid], e.Stats)
				if c.SumHess >= minChildWeight && e.Stats.SumHess >= minChildWeight {
					lossChg := evaluator.ComputeSplitScore(e.Stats, c) - snode[nid].RootGain
					e.BestSplit.Update(lossChg, fid, fsplit, false)
				}
			}
			if needBackward {
				tmp = Sub(sum, e.Stats)
				c = Sub(nodeStats[nid], tmp)
				if c.SumHess >= minChildWeight && tmp.SumHess >= minChildWeight {
					lossChg := evaluator.ComputeSplitScore(tmp, c) - snode[nid].RootGain
					e.BestSplit.Update(lossChg, fid, fsplit, true)
				}
			}
		}
		if needBackward && nthread > 0 {
			tmp = sum
			e := stemp[nthread-1][nid]
			c = Sub(nodeStats[nid], tmp)
			if c.SumHess >= minChildWeight && tmp.SumHess >= minChildWeight {
				lossChg := evaluator.ComputeSplitScore(tmp, c) - snode[nid].RootGain
				e.BestSplit.Update(lossChg, fid, e.LastFValue+KRtEps, true)
			}
		}
	}

	// phase 3: rescan, emitting midpoint candidates within each chunk.
	err = pool.Run(ctx, nthread, func(_ context.Context, tid int) error {
		temp := stemp[tid]
		lo := tid * step
		hi := lo + step
		if hi > n {
			hi = n
		}
		var c, cright GradStats
		for i := lo; i < hi; i++ {
			ridx := entries[i].Index
			nid, active := position.Decode(ridx)
			if !active {
				continue
			}
			fvalue := entries[i].FValue
			e := temp[nid]
			if e.Stats.Empty() {
				e.Stats.Add(gpair[ridx])
				e.FirstFValue = fvalue
				continue
			}
			if fvalue != e.FirstFValue {
				if needForward {
					c = Sub(nodeStats[nid], e.Stats)
					if c.SumHess >= minChildWeight && e.Stats.SumHess >= minChildWeight {
						lossChg := evaluator.ComputeSplitScore(e.Stats, c) - snode[nid].RootGain
						e.BestSplit.Update(lossChg, fid, (fvalue+e.FirstFValue)*0.5, false)
					}
				}
				if needBackward {
					cright = Sub(e.StatsLeft, e.Stats) // StatsLeft here doubles as stats_extra, set once per node in phase 2
					c = Sub(nodeStats[nid], cright)
					if c.SumHess >= minChildWeight && cright.SumHess >= minChildWeight {
						lossChg := evaluator.ComputeSplitScore(c, cright) - snode[nid].RootGain
						e.BestSplit.Update(lossChg, fid, (fvalue+e.FirstFValue)*0.5, true)
					}
				}
			}
			e.Stats.Add(gpair[ridx])
			e.FirstFValue = fvalue
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]ThreadEntry, len(qexpand))
	for i, nid := range qexpand {
		result[i] = ReduceThreadEntries(stemp, nid)
	}
	return result, nil
}

// ReduceThreadEntries merges every thread's ThreadEntry.BestSplit for
// one node into a single winner: the shared-memory half of the
// aggregation, with the cross-worker half living in collective.go.
func ReduceThreadEntries(stemp []map[int]*ThreadEntry, nid int) ThreadEntry {
	best := NewSplitEntry()
	for _, t := range stemp {
		best.UpdateFrom(t[nid].BestSplit)
	}
	return ThreadEntry{BestSplit: best}
}
