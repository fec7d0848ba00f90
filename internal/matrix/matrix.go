// Package matrix implements a dense row-major float matrix (C5) with a
// blocked multiply, used for mel spectrograms and filter banks. Values
// are float32 throughout to match the wire format of the feature cache.
package matrix

import (
	"fmt"
	"runtime"
	"sync"
)

const (
	elementwiseParallelThreshold = 1 << 20
	matmulParallelWork           = 2_000_000
	transposeBlock               = 32
)

// FloatMatrix is a dense row-major matrix: buffer[r*stride+c], r in
// [0,rows), c in [0,cols), stride >= cols. Owned exclusively by its
// holder — callers that want a copy must call Clone.
type FloatMatrix struct {
	rows, cols, stride int
	buf                []float32
}

// New allocates a zeroed matrix with stride == cols.
func New(rows, cols int) *FloatMatrix {
	return NewStrided(rows, cols, cols)
}

// NewStrided allocates a zeroed matrix with an explicit stride >= cols,
// useful for aligned row starts.
func NewStrided(rows, cols, stride int) *FloatMatrix {
	if stride < cols {
		stride = cols
	}
	return &FloatMatrix{
		rows:   rows,
		cols:   cols,
		stride: stride,
		buf:    make([]float32, rows*stride),
	}
}

func (m *FloatMatrix) Rows() int   { return m.rows }
func (m *FloatMatrix) Cols() int   { return m.cols }
func (m *FloatMatrix) Stride() int { return m.stride }

// Row returns the borrowed slice for row r, length cols (not stride).
func (m *FloatMatrix) Row(r int) []float32 {
	start := r * m.stride
	return m.buf[start : start+m.cols]
}

func (m *FloatMatrix) At(r, c int) float32 { return m.buf[r*m.stride+c] }
func (m *FloatMatrix) Set(r, c int, v float32) {
	m.buf[r*m.stride+c] = v
}

// Clone returns an owned deep copy with stride == cols.
func (m *FloatMatrix) Clone() *FloatMatrix {
	out := New(m.rows, m.cols)
	for r := 0; r < m.rows; r++ {
		copy(out.Row(r), m.Row(r))
	}
	return out
}

// Scale multiplies every element by s in place, row-parallelized above the
// element-wise threshold.
func (m *FloatMatrix) Scale(s float32) {
	m.mapElements(func(v float32) float32 { return v * s })
}

// AddInPlace adds other into m element-wise; shapes must match.
func (m *FloatMatrix) AddInPlace(other *FloatMatrix) error {
	if other.rows != m.rows || other.cols != m.cols {
		return fmt.Errorf("matrix: shape mismatch in Add: %dx%d vs %dx%d", m.rows, m.cols, other.rows, other.cols)
	}
	m.mapRows(func(r int) {
		dst, src := m.Row(r), other.Row(r)
		for c := range dst {
			dst[c] += src[c]
		}
	})
	return nil
}

// SubInPlace subtracts other from m element-wise; shapes must match.
func (m *FloatMatrix) SubInPlace(other *FloatMatrix) error {
	if other.rows != m.rows || other.cols != m.cols {
		return fmt.Errorf("matrix: shape mismatch in Sub: %dx%d vs %dx%d", m.rows, m.cols, other.rows, other.cols)
	}
	m.mapRows(func(r int) {
		dst, src := m.Row(r), other.Row(r)
		for c := range dst {
			dst[c] -= src[c]
		}
	})
	return nil
}

func (m *FloatMatrix) mapElements(f func(float32) float32) {
	m.mapRows(func(r int) {
		row := m.Row(r)
		for c := range row {
			row[c] = f(row[c])
		}
	})
}

func (m *FloatMatrix) mapRows(f func(r int)) {
	work := m.rows * m.cols
	if work < elementwiseParallelThreshold || m.rows < 2 {
		for r := 0; r < m.rows; r++ {
			f(r)
		}
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > m.rows {
		workers = m.rows
	}
	var wg sync.WaitGroup
	chunk := (m.rows + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > m.rows {
			hi = m.rows
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for r := lo; r < hi; r++ {
				f(r)
			}
		}(lo, hi)
	}
	wg.Wait()
}

// Transpose returns a new (cols x rows) matrix, cache-blocked 32x32.
func (m *FloatMatrix) Transpose() *FloatMatrix {
	out := New(m.cols, m.rows)
	for rb := 0; rb < m.rows; rb += transposeBlock {
		rEnd := rb + transposeBlock
		if rEnd > m.rows {
			rEnd = m.rows
		}
		for cb := 0; cb < m.cols; cb += transposeBlock {
			cEnd := cb + transposeBlock
			if cEnd > m.cols {
				cEnd = m.cols
			}
			for r := rb; r < rEnd; r++ {
				for c := cb; c < cEnd; c++ {
					out.Set(c, r, m.At(r, c))
				}
			}
		}
	}
	return out
}

// Multiply computes a*b and returns a new (a.rows x b.cols) matrix.
// Register-blocked 4-row x 3-column kernel over K-chunks of 32, with
// scalar tail handling; parallelizes across row chunks of 32 when the
// total work exceeds the matmul threshold. Output starts zeroed.
func Multiply(a, b *FloatMatrix) (*FloatMatrix, error) {
	if a.cols != b.rows {
		return nil, fmt.Errorf("matrix: inner dimension mismatch in Multiply: %dx%d * %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	out := New(a.rows, b.cols)
	m, n, k := a.rows, b.cols, a.cols
	work := m * n * k

	rowBlock := func(rLo, rHi int) { matmulBlock(a, b, out, rLo, rHi, k, n) }

	if work < matmulParallelWork || m < 2*32 {
		rowBlock(0, m)
		return out, nil
	}

	workers := runtime.GOMAXPROCS(0)
	chunks := (m + 31) / 32
	if workers > chunks {
		workers = chunks
	}
	var wg sync.WaitGroup
	perWorker := (chunks + workers - 1) / workers
	for w := 0; w < workers; w++ {
		loChunk := w * perWorker
		hiChunk := loChunk + perWorker
		if hiChunk > chunks {
			hiChunk = chunks
		}
		if loChunk >= hiChunk {
			continue
		}
		rLo := loChunk * 32
		rHi := hiChunk * 32
		if rHi > m {
			rHi = m
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			rowBlock(lo, hi)
		}(rLo, rHi)
	}
	wg.Wait()
	return out, nil
}

const kBlock = 32

// matmulBlock computes out[rLo:rHi, :] += a[rLo:rHi, :] * b for a single
// row range, using a 4-row x 3-column register-blocked kernel over K in
// chunks of kBlock, falling back to 4x1, 1x3, and scalar tail kernels at
// the K/M/N boundaries.
func matmulBlock(a, b, out *FloatMatrix, rLo, rHi, k, n int) {
	r := rLo
	for ; r+4 <= rHi; r += 4 {
		c := 0
		for ; c+3 <= n; c += 3 {
			matmulKernel4x3(a, b, out, r, c, k)
		}
		for ; c+1 <= n; c++ {
			matmulKernel4x1(a, b, out, r, c, k)
		}
	}
	for ; r < rHi; r++ {
		c := 0
		for ; c+3 <= n; c += 3 {
			matmulKernel1x3(a, b, out, r, c, k)
		}
		for ; c < n; c++ {
			matmulKernelScalar(a, b, out, r, c, k)
		}
	}
}

func matmulKernel4x3(a, b, out *FloatMatrix, r, c, k int) {
	var acc [4][3]float32
	a0, a1, a2, a3 := a.Row(r), a.Row(r+1), a.Row(r+2), a.Row(r+3)
	for kk0 := 0; kk0 < k; kk0 += kBlock {
		kk1 := kk0 + kBlock
		if kk1 > k {
			kk1 = k
		}
		for kk := kk0; kk < kk1; kk++ {
			bRow := b.Row(kk)
			b0, b1, b2 := bRow[c], bRow[c+1], bRow[c+2]
			av0, av1, av2, av3 := a0[kk], a1[kk], a2[kk], a3[kk]
			acc[0][0] += av0 * b0
			acc[0][1] += av0 * b1
			acc[0][2] += av0 * b2
			acc[1][0] += av1 * b0
			acc[1][1] += av1 * b1
			acc[1][2] += av1 * b2
			acc[2][0] += av2 * b0
			acc[2][1] += av2 * b1
			acc[2][2] += av2 * b2
			acc[3][0] += av3 * b0
			acc[3][1] += av3 * b1
			acc[3][2] += av3 * b2
		}
	}
	for i := 0; i < 4; i++ {
		row := out.Row(r + i)
		row[c] += acc[i][0]
		row[c+1] += acc[i][1]
		row[c+2] += acc[i][2]
	}
}

func matmulKernel4x1(a, b, out *FloatMatrix, r, c, k int) {
	var acc [4]float32
	a0, a1, a2, a3 := a.Row(r), a.Row(r+1), a.Row(r+2), a.Row(r+3)
	for kk := 0; kk < k; kk++ {
		bv := b.Row(kk)[c]
		acc[0] += a0[kk] * bv
		acc[1] += a1[kk] * bv
		acc[2] += a2[kk] * bv
		acc[3] += a3[kk] * bv
	}
	out.Row(r)[c] += acc[0]
	out.Row(r + 1)[c] += acc[1]
	out.Row(r + 2)[c] += acc[2]
	out.Row(r + 3)[c] += acc[3]
}

func matmulKernel1x3(a, b, out *FloatMatrix, r, c, k int) {
	var acc [3]float32
	aRow := a.Row(r)
	for kk := 0; kk < k; kk++ {
		av := aRow[kk]
		bRow := b.Row(kk)
		acc[0] += av * bRow[c]
		acc[1] += av * bRow[c+1]
		acc[2] += av * bRow[c+2]
	}
	row := out.Row(r)
	row[c] += acc[0]
	row[c+1] += acc[1]
	row[c+2] += acc[2]
}

func matmulKernelScalar(a, b, out *FloatMatrix, r, c, k int) {
	aRow := a.Row(r)
	var acc float32
	for kk := 0; kk < k; kk++ {
		acc += aRow[kk] * b.Row(kk)[c]
	}
	out.Row(r)[c] += acc
}
