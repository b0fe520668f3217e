package robust

// NodeEntry is the per-node scratch the builder keeps while a level is
// being processed: the accumulated stats for the node (before any
// split), the current best split candidate, and the node's weight and
// unsplit score, both computed when the node enters the expansion queue.
type NodeEntry struct {
	Stats      GradStats
	BestSplit  SplitEntry
	Weight     float64
	RootGain   float64
}

// NewNodeEntry returns a NodeEntry with no candidate split yet.
func NewNodeEntry() NodeEntry {
	return NodeEntry{BestSplit: NewSplitEntry()}
}

// ThreadEntry is one thread's private scratch for one (thread, node)
// pair during a single FindSplit pass: a running stats accumulator and
// a best-split-so-far, merged into the owning NodeEntry once the scan
// that owns it is done (under the Builder's mutex for the
// feature-parallel path, through ReduceThreadEntries for
// ParallelFindSplit). No locking is needed while a thread owns its
// ThreadEntry.
//
// The StatsLeft/DataUncRight/DataUnc/StatsUncRight/StatsCLeft/CLeftCounter/
// StatsUnc fields exist only for the robust enumerator (enumerator.go):
// they track the sliding window of rows whose perturbed feature value
// could land on either side of the current threshold. The classical
// parallel enumerator (parallel_enumerator.go) only ever touches Stats,
// LastFValue, FirstFValue, BestSplit, and StatsLeft (which it uses to
// hold the node's column total).
type ThreadEntry struct {
	Stats       GradStats
	LastFValue  float64
	FirstFValue float64
	BestSplit   SplitEntry

	StatsLeft     GradStats
	DataUncRight  []int // indices into the column's Entries, FIFO
	DataUnc       []int
	StatsUncRight GradStats
	StatsCLeft    GradStats
	CLeftCounter  int
	StatsUnc      GradStats

	// Touched is set the first time a row lands in this entry during
	// the current feature's scan; EnumerateSplit uses it to run the
	// "first hit" initialization exactly once per feature instead of
	// inferring it from Stats happening to be zero.
	Touched bool
}

// NewThreadEntry returns a ThreadEntry with no candidate split yet.
func NewThreadEntry() ThreadEntry {
	return ThreadEntry{BestSplit: NewSplitEntry()}
}

// Clear resets all per-feature scratch to zero. EnumerateSplit calls
// this on every entry in its scratchSet at the start of each call, so a
// second scan direction over the same feature (same temp map) never
// sees the first direction's leftover Stats/StatsLeft/window state.
// BestSplit is left untouched: it is the per-node, cross-feature winner
// a thread accumulates over every feature and direction it scans.
func (e *ThreadEntry) Clear() {
	*e = ThreadEntry{BestSplit: e.BestSplit}
}
