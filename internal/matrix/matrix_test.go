package matrix

import (
	"math/rand"
	"testing"
)

func TestRowAccessAndSet(t *testing.T) {
	m := New(3, 4)
	m.Set(1, 2, 5)
	if m.At(1, 2) != 5 {
		t.Fatalf("At(1,2) = %v, want 5", m.At(1, 2))
	}
	row := m.Row(1)
	if len(row) != 4 {
		t.Fatalf("len(Row(1)) = %d, want 4", len(row))
	}
}

func TestStrideBiggerThanCols(t *testing.T) {
	m := NewStrided(2, 3, 8)
	if m.Stride() != 8 || m.Cols() != 3 {
		t.Fatalf("unexpected shape stride=%d cols=%d", m.Stride(), m.Cols())
	}
	m.Set(0, 2, 1)
	m.Set(1, 0, 2)
	if m.At(0, 2) != 1 || m.At(1, 0) != 2 {
		t.Fatal("strided set/get mismatch")
	}
}

func TestTransposeRoundTrip(t *testing.T) {
	m := New(5, 7)
	rng := rand.New(rand.NewSource(1))
	for r := 0; r < 5; r++ {
		row := m.Row(r)
		for c := range row {
			row[c] = float32(rng.Float64())
		}
	}
	tp := m.Transpose().Transpose()
	for r := 0; r < 5; r++ {
		for c := 0; c < 7; c++ {
			if m.At(r, c) != tp.At(r, c) {
				t.Fatalf("double-transpose mismatch at (%d,%d)", r, c)
			}
		}
	}
}

func TestMultiplyAgainstNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := New(6, 9)
	b := New(9, 5)
	fillRandom(a, rng)
	fillRandom(b, rng)

	got, err := Multiply(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := naiveMultiply(a, b)
	for r := 0; r < 6; r++ {
		for c := 0; c < 5; c++ {
			if diff := abs32(got.At(r, c) - want.At(r, c)); diff > 1e-4 {
				t.Fatalf("mismatch at (%d,%d): got %v want %v", r, c, got.At(r, c), want.At(r, c))
			}
		}
	}
}

func TestMultiplyDimensionMismatch(t *testing.T) {
	a := New(2, 3)
	b := New(4, 2)
	if _, err := Multiply(a, b); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestMultiplyLargeParallelPath(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := New(96, 300)
	b := New(300, 96)
	fillRandom(a, rng)
	fillRandom(b, rng)

	got, err := Multiply(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := naiveMultiply(a, b)
	var maxDiff float32
	for r := 0; r < got.Rows(); r++ {
		for c := 0; c < got.Cols(); c++ {
			if d := abs32(got.At(r, c) - want.At(r, c)); d > maxDiff {
				maxDiff = d
			}
		}
	}
	if maxDiff > 1e-2 {
		t.Fatalf("parallel path max diff %v exceeds tolerance", maxDiff)
	}
}

func fillRandom(m *FloatMatrix, rng *rand.Rand) {
	for r := 0; r < m.Rows(); r++ {
		row := m.Row(r)
		for c := range row {
			row[c] = float32(rng.Float64()*2 - 1)
		}
	}
}

func naiveMultiply(a, b *FloatMatrix) *FloatMatrix {
	out := New(a.Rows(), b.Cols())
	for r := 0; r < a.Rows(); r++ {
		for c := 0; c < b.Cols(); c++ {
			var acc float32
			for kk := 0; kk < a.Cols(); kk++ {
				acc += a.At(r, kk) * b.At(kk, c)
			}
			out.Set(r, c, acc)
		}
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
