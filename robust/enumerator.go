package robust

import "math"

// direction is the scan direction used for one pass of EnumerateSplit:
// +1 produces default-right splits, -1 produces default-left splits.
// Both walk the column in ascending fvalue order; -1 only swaps the
// argument order passed to ComputeSplitScore.
type direction int

const (
	forward  direction = +1
	backward direction = -1
)

// scratchSet is the per-level, per-node collection of ThreadEntry
// values EnumerateSplit reads and updates. Builder owns one of these
// per goroutine; nodes not present in qexpand are simply absent.
type scratchSet map[int]*ThreadEntry

// EnumerateSplit is the robust split enumerator: for every node active
// in qexpand, scan one feature's column once in the given direction and
// update that node's ThreadEntry.BestSplit with the worst-case
// (adversarially perturbed) loss_chg achievable by splitting on this
// feature, if it beats what's already there.
//
// The col is always walked in ascending fvalue order, since this
// module's column storage is always pre-sorted ascending; d_step alone
// selects which side is "default."
func EnumerateSplit(
	col ColBatch,
	d direction,
	fid int,
	gpair []GradientPair,
	position *Position,
	nodeStats map[int]GradStats,
	eps float64,
	minChildWeight float64,
	snode map[int]*NodeEntry,
	evaluator SplitEvaluator,
	temp scratchSet,
) {
	for _, e := range temp {
		e.Clear()
	}

	entries := col.Entries
	n := len(entries)
	if n == 0 {
		return
	}

	step := 1
	start, end := 0, n

	for i := start; i != end; i += step {
		it := entries[i]
		ridx := it.Index
		nid, active := position.Decode(ridx)
		if !active {
			continue
		}

		fvalue := it.FValue
		eta := fvalue - eps

		e, ok := temp[nid]
		if !ok {
			ne := NewThreadEntry()
			e = &ne
			temp[nid] = e
		}

		if !e.Touched {
			e.Touched = true
			e.Stats.Add(gpair[ridx])
			e.LastFValue = fvalue
			e.DataUncRight = append(e.DataUncRight, i)
			e.DataUnc = append(e.DataUnc, i)
			e.StatsUncRight.Add(gpair[ridx])
			e.StatsUnc.Add(gpair[ridx])
			continue
		}

		for len(e.DataUncRight) > 0 {
			frontIdx := e.DataUncRight[0]
			front := entries[frontIdx]
			if front.FValue < eta {
				e.StatsLeft.Add(gpair[front.Index])
				e.StatsUncRight.Subtract(gpair[front.Index])
				e.DataUncRight = e.DataUncRight[1:]
			} else {
				break
			}
		}
		for len(e.DataUnc) > 0 {
			frontIdx := e.DataUnc[0]
			front := entries[frontIdx]
			if front.FValue < eta-eps {
				e.DataUnc = e.DataUnc[1:]
				e.StatsCLeft.Add(gpair[front.Index])
				e.CLeftCounter++
				e.StatsUnc.Subtract(gpair[front.Index])
			} else {
				break
			}
		}

		node := snode[nid]
		if fvalue != e.LastFValue && e.Stats.SumHess >= minChildWeight {
			c := Sub(nodeStats[nid], e.StatsLeft)
			if c.SumHess >= minChildWeight {
				var lossChg float64
				if d == backward {
					lossChg = evaluator.ComputeSplitScore(c, e.StatsLeft) - node.RootGain
				} else {
					lossChg = evaluator.ComputeSplitScore(e.StatsLeft, c) - node.RootGain
				}

				if len(e.DataUnc) > 0 {
					allLeft := Union(e.StatsCLeft, e.StatsUnc)
					cRight := Sub(nodeStats[nid], allLeft)
					var putLeftLossChg float64
					if d == backward {
						putLeftLossChg = evaluator.ComputeSplitScore(cRight, allLeft) - node.RootGain
					} else {
						putLeftLossChg = evaluator.ComputeSplitScore(allLeft, cRight) - node.RootGain
					}
					if putLeftLossChg < lossChg {
						lossChg = putLeftLossChg
					}

					allRight := Sub(nodeStats[nid], e.StatsCLeft)
					var putRightLossChg float64
					if d == backward {
						putRightLossChg = evaluator.ComputeSplitScore(allRight, e.StatsCLeft) - node.RootGain
					} else {
						putRightLossChg = evaluator.ComputeSplitScore(e.StatsCLeft, allRight) - node.RootGain
					}
					if putRightLossChg < lossChg {
						lossChg = putRightLossChg
					}

					swapLeft := Union(e.StatsCLeft, e.StatsUncRight)
					swapRight := Sub(nodeStats[nid], swapLeft)
					var swapLossChg float64
					if d == backward {
						swapLossChg = evaluator.ComputeSplitScore(swapRight, swapLeft) - node.RootGain
					} else {
						swapLossChg = evaluator.ComputeSplitScore(swapLeft, swapRight) - node.RootGain
					}
					if swapLossChg < lossChg {
						lossChg = swapLossChg
					}
				}

				e.BestSplit.Update(lossChg, fid, eta, d == backward)
			}
		}

		e.Stats.Add(gpair[ridx])
		e.LastFValue = fvalue
		e.DataUncRight = append(e.DataUncRight, i)
		e.DataUnc = append(e.DataUnc, i)
		e.StatsUncRight.Add(gpair[ridx])
		e.StatsUnc.Add(gpair[ridx])
	}

	// all-statistics pass: consider the split that puts every row of
	// this node on one side (beyond the last observed value).
	for nid, e := range temp {
		node, ok := snode[nid]
		if !ok {
			continue
		}
		c := Sub(nodeStats[nid], e.Stats)
		if e.Stats.SumHess >= minChildWeight && c.SumHess >= minChildWeight {
			var lossChg float64
			if d == backward {
				lossChg = evaluator.ComputeSplitScore(c, e.Stats) - node.RootGain
			} else {
				lossChg = evaluator.ComputeSplitScore(e.Stats, c) - node.RootGain
			}
			gap := math.Abs(e.LastFValue) + KRtEps + eps
			delta := gap
			if d == backward {
				delta = -gap
			}
			e.BestSplit.Update(lossChg, fid, e.LastFValue+delta, d == backward)
		}
	}

	// move thresholds to the midpoint between the two bracketing
	// observed values, once per node, the first time this feature's
	// threshold is seen to fall strictly inside a bracket.
	lastFValueOf := map[int]float64{}
	haveLast := map[int]bool{}
	updated := map[int]bool{}
	for i := start; i != end; i += step {
		it := entries[i]
		nid, active := position.Decode(it.Index)
		if !active {
			continue
		}
		e, ok := temp[nid]
		if !ok || e.BestSplit.SplitIndex != fid || updated[nid] {
			continue
		}
		if haveLast[nid] {
			last := lastFValueOf[nid]
			if last < e.BestSplit.SplitValue && e.BestSplit.SplitValue <= it.FValue {
				e.BestSplit.UpdateSplitValue((it.FValue + last) * 0.5)
				updated[nid] = true
			}
		}
		lastFValueOf[nid] = it.FValue
		haveLast[nid] = true
	}
}
