package robust

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitEntryUpdateReplacesOnBetterGain(t *testing.T) {
	s := NewSplitEntry()
	assert.True(t, s.Update(1.0, 3, 0.5, false))
	assert.False(t, s.Update(0.5, 5, 0.6, false), "worse gain must not replace")
	assert.True(t, s.Update(2.0, 5, 0.7, true), "strictly better gain replaces regardless of index")
	assert.Equal(t, 2.0, s.LossChg)
	assert.Equal(t, 5, s.SplitIndex)
}

func TestSplitEntryTieBreaksOnLowerFeatureIndex(t *testing.T) {
	s := NewSplitEntry()
	s.Update(1.0, 4, 0.1, false)
	replaced := s.Update(1.0, 2, 0.2, false)
	assert.True(t, replaced, "equal gain at a lower feature index should win")
	assert.Equal(t, 2, s.SplitIndex)

	replaced = s.Update(1.0, 7, 0.3, false)
	assert.False(t, replaced, "equal gain at a higher feature index than the installed one must not replace")
}

func TestSplitEntryIgnoresNonFiniteGain(t *testing.T) {
	s := NewSplitEntry()
	assert.False(t, s.Update(math.Inf(1), 0, 0, false))
	assert.False(t, s.Update(math.NaN(), 0, 0, false))
	assert.False(t, s.Valid())
}

func TestReduceSplitEntriesIsOrderIndependent(t *testing.T) {
	a := SplitEntry{LossChg: 1.5, SplitIndex: 2, SplitValue: 0.3}
	b := SplitEntry{LossChg: 2.5, SplitIndex: 0, SplitValue: 0.1}
	c := SplitEntry{LossChg: 2.5, SplitIndex: 0, SplitValue: 0.1}

	winner1 := ReduceSplitEntries([]SplitEntry{a, b, c})
	winner2 := ReduceSplitEntries([]SplitEntry{c, b, a})
	winner3 := ReduceSplitEntries([]SplitEntry{b, a, c})

	assert.Equal(t, winner1, winner2)
	assert.Equal(t, winner1, winner3)
	assert.Equal(t, 2.5, winner1.LossChg)
}

func TestSplitEntryUpdateFromSkipsInvalidCandidate(t *testing.T) {
	s := SplitEntry{LossChg: 3, SplitIndex: 1}
	assert.False(t, s.UpdateFrom(NewSplitEntry()))
	assert.Equal(t, 3.0, s.LossChg)
}
