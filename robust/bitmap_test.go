package robust

import "testing"

func TestRowBitmapSetContains(t *testing.T) {
	b := NewRowBitmap()
	b.Set(3)
	b.Set(9)
	if !b.Contains(3) || !b.Contains(9) {
		t.Fatal("set rows must be contained")
	}
	if b.Contains(4) {
		t.Fatal("unset row must not be contained")
	}
	if b.Cardinality() != 2 {
		t.Fatalf("got cardinality %d, want 2", b.Cardinality())
	}
}

func TestRowBitmapOrIsUnion(t *testing.T) {
	a := NewRowBitmap()
	a.Set(1)
	b := NewRowBitmap()
	b.Set(2)

	a.Or(b)
	if !a.Contains(1) || !a.Contains(2) {
		t.Fatal("Or must union both bitmaps' rows")
	}
}

func TestRowBitmapCloneIsIndependent(t *testing.T) {
	a := NewRowBitmap()
	a.Set(1)
	clone := a.Clone()
	clone.Set(2)

	if a.Contains(2) {
		t.Fatal("mutating a clone must not affect the original")
	}
}

func TestRowBitmapEachVisitsInIncreasingOrder(t *testing.T) {
	b := NewRowBitmap()
	b.Set(5)
	b.Set(1)
	b.Set(3)

	var got []int
	b.Each(func(row int) { got = append(got, row) })
	want := []int{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
