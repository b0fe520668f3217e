package robust

import "math"

// NoSplitIndex marks a SplitEntry that has not yet found any feasible
// candidate split.
const NoSplitIndex = -1

// SplitEntry is the best candidate split seen so far for one node, by
// one thread (or, after reduction, by the whole forest of threads and
// workers). The Update rule is monotone: a new candidate replaces the
// current one only under the deterministic tie-break spelled out in
// NeedReplace, so that repeated merges of the same candidate set
// converge to the same winner regardless of merge order, except between
// candidates with equal loss_chg on the same feature: the threshold is
// not compared, and the one merged first is kept.
type SplitEntry struct {
	LossChg     float64
	SplitIndex  int
	SplitValue  float64
	DefaultLeft bool
}

// NewSplitEntry returns a SplitEntry with no candidate yet.
func NewSplitEntry() SplitEntry {
	return SplitEntry{LossChg: 0, SplitIndex: NoSplitIndex}
}

// NeedReplace decides whether a new candidate should replace the
// current one. Ties are broken on the feature id only: among equal
// loss_chg, the lower split index wins; a candidate at the same or a
// higher index needs a strictly better loss_chg to dislodge the
// installed one.
func (s SplitEntry) NeedReplace(newLossChg float64, newSplitIndex int) bool {
	if math.IsInf(newLossChg, 0) || math.IsNaN(newLossChg) {
		return false
	}
	if s.SplitIndex <= newSplitIndex {
		return newLossChg > s.LossChg
	}
	return !(s.LossChg > newLossChg)
}

// Update replaces the candidate in place if NeedReplace says to, and
// reports whether it did.
func (s *SplitEntry) Update(lossChg float64, splitIndex int, splitValue float64, defaultLeft bool) bool {
	if !s.NeedReplace(lossChg, splitIndex) {
		return false
	}
	s.LossChg = lossChg
	s.SplitIndex = splitIndex
	s.SplitValue = splitValue
	s.DefaultLeft = defaultLeft
	return true
}

// UpdateFrom merges another SplitEntry into the receiver using the same
// monotone rule. This is the primitive both SyncBestSolution
// (shared-memory) and the distributed Allreduce reducer build on.
func (s *SplitEntry) UpdateFrom(other SplitEntry) bool {
	if other.SplitIndex == NoSplitIndex {
		return false
	}
	return s.Update(other.LossChg, other.SplitIndex, other.SplitValue, other.DefaultLeft)
}

// UpdateSplitValue overwrites just the threshold, used by the mid-move
// pass which keeps the winning feature/loss but recenters the
// threshold between two adjacent observed values.
func (s *SplitEntry) UpdateSplitValue(v float64) {
	s.SplitValue = v
}

// Valid reports whether any candidate has been found.
func (s SplitEntry) Valid() bool {
	return s.SplitIndex != NoSplitIndex
}

// ReduceSplitEntries merges a slice of SplitEntry into one winner using
// the monotone rule: the commutative reducer the distributed
// collective applies pairwise.
func ReduceSplitEntries(entries []SplitEntry) SplitEntry {
	best := NewSplitEntry()
	for _, e := range entries {
		best.UpdateFrom(e)
	}
	return best
}
