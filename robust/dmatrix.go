package robust

import (
	"fmt"
	"os"
	"sort"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Entry is one non-missing observation in a column: the row index and
// its feature value. Columns are stored pre-sorted ascending by FValue
// so the enumerators can scan without re-sorting.
type Entry struct {
	Index  int
	FValue float64
}

// ColBatch is one feature's column: its sorted, non-missing entries and
// the total row count of the matrix it came from (needed to compute
// density).
type ColBatch struct {
	Entries []Entry
	NumRow  int
}

// Density returns the fraction of rows that have a non-missing value in
// this column, the quantity TrainParam.NeedForwardSearch/
// NeedBackwardSearch gate on.
func (c ColBatch) Density() float64 {
	if c.NumRow == 0 {
		return 0
	}
	return float64(len(c.Entries)) / float64(c.NumRow)
}

// Indicator reports whether every non-missing value in the column is
// identical (a constant column carries no split information in either
// scan direction).
func (c ColBatch) Indicator() bool {
	if len(c.Entries) < 2 {
		return true
	}
	first := c.Entries[0].FValue
	for _, e := range c.Entries[1:] {
		if e.FValue != first {
			return false
		}
	}
	return true
}

// DMatrix is a column-sparse feature matrix.
// Missing values are simply absent from a column's Entries, which is
// what the builder's default-direction logic needs.
type DMatrix struct {
	Columns []ColBatch
	NumRow  int
	NumCol  int
}

// NewDMatrixFromDense builds a column-sparse DMatrix from a dense
// gonum matrix, treating NaN as missing. This is the bridge used by the
// CLI after loading .npy files.
func NewDMatrixFromDense(features *mat.Dense) *DMatrix {
	numRow, numCol := features.Dims()
	dm := &DMatrix{Columns: make([]ColBatch, numCol), NumRow: numRow, NumCol: numCol}
	for c := 0; c < numCol; c++ {
		entries := make([]Entry, 0, numRow)
		for r := 0; r < numRow; r++ {
			v := features.At(r, c)
			if v != v { // NaN, missing
				continue
			}
			entries = append(entries, Entry{Index: r, FValue: v})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].FValue < entries[j].FValue })
		dm.Columns[c] = ColBatch{Entries: entries, NumRow: numRow}
	}
	return dm
}

// ReadNpyDense loads a .npy file into a dense gonum matrix.
func ReadNpyDense(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("robust: opening %s: %w", fileName, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("robust: reading npy header of %s: %w", fileName, err)
	}

	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, fmt.Errorf("robust: reading npy payload of %s: %w", fileName, err)
	}
	return denseMat, nil
}

// LoadDMatrix loads a feature matrix from a .npy file and wraps it as a
// column-sparse DMatrix.
func LoadDMatrix(featuresPath string) (*DMatrix, error) {
	dense, err := ReadNpyDense(featuresPath)
	if err != nil {
		return nil, err
	}
	return NewDMatrixFromDense(dense), nil
}

// LoadGradients loads a two-column .npy file (grad, hess per row) into
// a GradientPair slice. Computing the gradients themselves is left to
// whatever loss function the caller is boosting against.
func LoadGradients(path string) ([]GradientPair, error) {
	dense, err := ReadNpyDense(path)
	if err != nil {
		return nil, err
	}
	rows, cols := dense.Dims()
	if cols != 2 {
		return nil, &DataError{Reason: fmt.Sprintf("gradient file must have 2 columns, got %d", cols)}
	}
	out := make([]GradientPair, rows)
	for r := 0; r < rows; r++ {
		out[r] = GradientPair{Grad: dense.At(r, 0), Hess: dense.At(r, 1)}
	}
	return out, nil
}

// Validate checks internal consistency: every column's NumRow must
// match the matrix's and every entry index must be in range.
func (dm *DMatrix) Validate() error {
	if len(dm.Columns) != dm.NumCol {
		return &DataError{Reason: fmt.Sprintf("NumCol=%d but %d columns stored", dm.NumCol, len(dm.Columns))}
	}
	for ci, col := range dm.Columns {
		if col.NumRow != dm.NumRow {
			return &DataError{Reason: fmt.Sprintf("column %d has NumRow=%d, matrix has %d", ci, col.NumRow, dm.NumRow)}
		}
		for _, e := range col.Entries {
			if e.Index < 0 || e.Index >= dm.NumRow {
				return &DataError{Reason: fmt.Sprintf("column %d entry index %d out of range [0,%d)", ci, e.Index, dm.NumRow)}
			}
		}
	}
	return nil
}
