package robust

// Position tracks, for every row, which node of the tree currently
// being grown that row belongs to, using a signed-integer encoding
// trick: a non-negative value means the row is active at node nid; a
// negative value means the row became inactive (pruned branch, sampled
// out, or missing along a direction that doesn't apply) at node ^nid
// (bitwise complement, so 0 and its complement -1 are both
// representable and distinct).
type Position struct {
	values []int
}

// NewPosition returns a Position for numRow rows, all initially active
// at the root.
func NewPosition(numRow int) *Position {
	p := &Position{values: make([]int, numRow)}
	for i := range p.values {
		p.values[i] = KRootNid
	}
	return p
}

// Decode splits an encoded value into (nid, isActive).
func Decode(encoded int) (nid int, active bool) {
	if encoded < 0 {
		return ^encoded, false
	}
	return encoded, true
}

// SetEncode packs (nid, active) into the stored representation.
func SetEncode(nid int, active bool) int {
	if active {
		return nid
	}
	return ^nid
}

// Get returns the raw encoded value for row i.
func (p *Position) Get(i int) int { return p.values[i] }

// Decode returns (nid, active) for row i.
func (p *Position) Decode(i int) (int, bool) { return Decode(p.values[i]) }

// SetActive moves row i to nid, marking it active.
func (p *Position) SetActive(i, nid int) { p.values[i] = SetEncode(nid, true) }

// SetInactive marks row i inactive at nid without discarding nid, so a
// later pass (the distributed UpdatePosition walk, for instance) can
// still see which node the row last belonged to.
func (p *Position) SetInactive(i, nid int) { p.values[i] = SetEncode(nid, false) }

// Active reports whether row i is currently active.
func (p *Position) Active(i int) bool {
	_, active := p.Decode(i)
	return active
}

// SetPreserveActive moves row i to nid, keeping its current
// active/inactive bit. Used by ResetPosition's default-branch push,
// which relocates a row without changing whether statistics collection
// should see it.
func (p *Position) SetPreserveActive(i, nid int) {
	_, active := p.Decode(i)
	p.values[i] = SetEncode(nid, active)
}

// NumRow returns the number of tracked rows.
func (p *Position) NumRow() int { return len(p.values) }

// SetEncoded moves row i to nid with an explicitly given active bit,
// used by setNonDefaultPosition which already decoded the bit once and
// doesn't want to re-decode it.
func (p *Position) SetEncoded(i, nid int, active bool) {
	p.values[i] = SetEncode(nid, active)
}
