package rational

import "math/big"

// Matrix is a dense matrix of exact rationals.
type Matrix struct {
	rows, cols int
	data       [][]*big.Rat
}

// NewMatrix returns an r-by-c matrix of zeros.
func NewMatrix(r, c int) *Matrix {
	m := &Matrix{rows: r, cols: c, data: make([][]*big.Rat, r)}
	for i := range m.data {
		row := make([]*big.Rat, c)
		for j := range row {
			row[j] = new(big.Rat)
		}
		m.data[i] = row
	}
	return m
}

// Rows reports the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols reports the column count.
func (m *Matrix) Cols() int { return m.cols }

// At returns the entry at (row, col).
func (m *Matrix) At(row, col int) *big.Rat { return m.data[row][col] }

// Set assigns the entry at (row, col).
func (m *Matrix) Set(row, col int, v *big.Rat) { m.data[row][col] = new(big.Rat).Set(v) }

// Row returns the underlying row slice (not a copy).
func (m *Matrix) Row(row int) []*big.Rat { return m.data[row] }

// IsRowZero reports whether every entry in the row is exactly zero.
func (m *Matrix) IsRowZero(row int) bool {
	for _, v := range m.data[row] {
		if !Zero(v) {
			return false
		}
	}
	return true
}

// Resize truncates or grows the matrix in place to r rows and c columns,
// zero-filling any new entries. Used to project b down to its first N rows
// once Gaussian elimination has solved the leading N-by-N block.
func (m *Matrix) Resize(r, c int) {
	for i := range m.data {
		row := m.data[i]
		if c > len(row) {
			for len(row) < c {
				row = append(row, new(big.Rat))
			}
			m.data[i] = row
		} else {
			m.data[i] = row[:c]
		}
	}
	if r > len(m.data) {
		for len(m.data) < r {
			row := make([]*big.Rat, c)
			for j := range row {
				row[j] = new(big.Rat)
			}
			m.data = append(m.data, row)
		}
	} else {
		m.data = m.data[:r]
	}
	m.rows, m.cols = r, c
}

// T returns the transpose of m.
func (m *Matrix) T() *Matrix {
	t := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t
}

// Result classifies the outcome of Solve.
type Result int

const (
	// Unique means A·X = B has exactly one solution, returned as X.
	Unique Result = iota
	// Underdetermined means elimination hit a zero pivot before
	// exhausting the leading N-by-N block; the caller should resample
	// with a differently-shaped A and retry.
	Underdetermined
	// Inconsistent means a trailing row of B was nonzero after a
	// consistent leading block, i.e. no X satisfies every sample row.
	Inconsistent
)

// Solve performs Gauss-Jordan elimination of A (S-by-N) against B (S-by-M)
// in place and returns the classification together with the resulting
// N-by-M solution matrix (valid only when the classification is Unique).
//
// This mirrors the original source's gaussian(): it does not search for a
// nonzero pivot by swapping rows. A zero pivot is reported directly as
// Underdetermined, on the expectation that resampling (not row-swapping)
// is how the caller recovers — consistent with spec §9's documented
// policy of retrying with fresh random samples rather than re-pivoting.
func Solve(a, b *Matrix) (Result, *Matrix) {
	if a.Rows() != b.Rows() {
		panic("rational: Solve requires A and B to have the same row count")
	}
	s, n, mCols := a.Rows(), a.Cols(), b.Cols()

	limit := n
	if s < limit {
		limit = s
	}
	for i := 0; i < limit; i++ {
		if Zero(a.At(i, i)) {
			return Underdetermined, nil
		}
		pivot := new(big.Rat).Set(a.At(i, i))
		for j := 0; j < n; j++ {
			a.data[i][j].Quo(a.data[i][j], pivot)
		}
		for j := 0; j < mCols; j++ {
			b.data[i][j].Quo(b.data[i][j], pivot)
		}
		for k := 0; k < s; k++ {
			if k == i {
				continue
			}
			factor := new(big.Rat).Set(a.At(k, i))
			if Zero(factor) {
				continue
			}
			for j := 0; j < n; j++ {
				a.data[k][j].Sub(a.data[k][j], new(big.Rat).Mul(factor, a.data[i][j]))
			}
			for j := 0; j < mCols; j++ {
				b.data[k][j].Sub(b.data[k][j], new(big.Rat).Mul(factor, b.data[i][j]))
			}
		}
	}
	for i := n; i < s; i++ {
		if !b.IsRowZero(i) {
			return Inconsistent, nil
		}
	}
	b.Resize(n, mCols)
	return Unique, b
}
