package robust

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewDMatrixFromDenseTreatsNaNAsMissing(t *testing.T) {
	nan := math.NaN()
	dense := mat.NewDense(3, 2, []float64{
		1.0, nan,
		2.0, 5.0,
		nan, 6.0,
	})
	dm := NewDMatrixFromDense(dense)

	if dm.NumRow != 3 || dm.NumCol != 2 {
		t.Fatalf("got NumRow=%d NumCol=%d", dm.NumRow, dm.NumCol)
	}
	if len(dm.Columns[0].Entries) != 2 {
		t.Fatalf("column 0 should have 2 non-missing entries, got %d", len(dm.Columns[0].Entries))
	}
	if len(dm.Columns[1].Entries) != 2 {
		t.Fatalf("column 1 should have 2 non-missing entries, got %d", len(dm.Columns[1].Entries))
	}
	for i := 1; i < len(dm.Columns[0].Entries); i++ {
		if dm.Columns[0].Entries[i].FValue < dm.Columns[0].Entries[i-1].FValue {
			t.Fatal("column entries must be sorted ascending by FValue")
		}
	}
}

func TestDMatrixValidateCatchesRowCountMismatch(t *testing.T) {
	dm := &DMatrix{
		Columns: []ColBatch{{Entries: nil, NumRow: 5}},
		NumRow:  3,
		NumCol:  1,
	}
	if err := dm.Validate(); err == nil {
		t.Fatal("a column whose NumRow disagrees with the matrix must fail Validate")
	}
}

func TestDMatrixValidateCatchesOutOfRangeIndex(t *testing.T) {
	dm := &DMatrix{
		Columns: []ColBatch{{Entries: []Entry{{Index: 9, FValue: 1}}, NumRow: 3}},
		NumRow:  3,
		NumCol:  1,
	}
	if err := dm.Validate(); err == nil {
		t.Fatal("an entry index outside [0,NumRow) must fail Validate")
	}
}

func TestColBatchDensityAndIndicator(t *testing.T) {
	col := ColBatch{Entries: []Entry{{Index: 0, FValue: 1}, {Index: 1, FValue: 1}}, NumRow: 4}
	if got, want := col.Density(), 0.5; got != want {
		t.Fatalf("density = %v, want %v", got, want)
	}
	if !col.Indicator() {
		t.Fatal("a column with identical values everywhere is constant")
	}

	col.Entries = append(col.Entries, Entry{Index: 2, FValue: 2})
	if col.Indicator() {
		t.Fatal("a column with a differing value is not constant")
	}
}
