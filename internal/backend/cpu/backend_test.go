package cpu

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat32(data, shape)
	require.NoError(t, err)
	return r
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}
	return out
}

func naiveMatMul(a, b []float32, m, k, n int) []float32 {
	c := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var s float32
			for p := 0; p < k; p++ {
				s += a[i*k+p] * b[p*n+j]
			}
			c[i*n+j] = s
		}
	}
	return c
}

func TestCPUBackend_Name(t *testing.T) {
	assert.Equal(t, "CPU", New().Name())
	assert.Equal(t, "CPU+fake", New(WithAccelerator(&fakeAccelerator{}, 1)).Name())
}

func TestCPUBackend_Broadcasting(t *testing.T) {
	b := New(WithParallel(parallel.Sequential()))
	x := raw(t, seq(6), 2, 3)

	tests := []struct {
		name  string
		other *tensor.RawTensor
		op    func(a, b *tensor.RawTensor) *tensor.RawTensor
		want  []float32
		shape tensor.Shape
	}{
		{"add same shape", raw(t, seq(6), 2, 3), b.Add, []float32{2, 4, 6, 8, 10, 12}, tensor.Shape{2, 3}},
		{"add row vector", raw(t, []float32{10, 20, 30}, 3), b.Add, []float32{11, 22, 33, 14, 25, 36}, tensor.Shape{2, 3}},
		{"sub column", raw(t, []float32{1, 4}, 2, 1), b.Sub, []float32{0, 1, 2, 0, 1, 2}, tensor.Shape{2, 3}},
		{"mul scalar tensor", raw(t, []float32{2}, 1), b.Mul, []float32{2, 4, 6, 8, 10, 12}, tensor.Shape{2, 3}},
		{"div expands rank", raw(t, []float32{1, 2, 3, 4, 5, 6}, 1, 2, 3), b.Div, []float32{1, 1, 1, 1, 1, 1}, tensor.Shape{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(x, tt.other)
			assert.Equal(t, tt.shape, got.Shape())
			assert.InDeltaSlice(t, tt.want, got.Data(), 1e-6)
		})
	}

	assert.Panics(t, func() { b.Add(x, raw(t, seq(4), 4)) })
}

func TestCPUBackend_ScalarAndUnary(t *testing.T) {
	b := New()
	x := raw(t, []float32{-2, 0, 4}, 3)
	assert.Equal(t, []float32{-4, 0, 8}, b.MulScalar(x, 2).Data())
	assert.Equal(t, []float32{-1, 1, 5}, b.AddScalar(x, 1).Data())
	assert.Equal(t, []float32{0, 0, 4}, b.ReLU(x).Data())
	assert.InDeltaSlice(t, []float32{0, 2}, b.Sqrt(raw(t, []float32{0, 4}, 2)).Data(), 1e-6)
	assert.Equal(t, []float32{-2, 0, 4}, x.Data(), "inputs are never modified")
}

func TestCPUBackend_MatMul(t *testing.T) {
	b := New()

	t.Run("2d", func(t *testing.T) {
		a := raw(t, seq(6), 2, 3)
		w := raw(t, seq(12), 3, 4)
		got := b.MatMul(a, w, false)
		assert.Equal(t, tensor.Shape{2, 4}, got.Shape())
		assert.InDeltaSlice(t, naiveMatMul(seq(6), seq(12), 2, 3, 4), got.Data(), 1e-4)
	})

	t.Run("transB", func(t *testing.T) {
		a := raw(t, seq(6), 2, 3)
		w := raw(t, seq(12), 4, 3)
		wt := b.Transpose(w)
		want := b.MatMul(a, wt, false)
		got := b.MatMul(a, w, true)
		assert.Equal(t, tensor.Shape{2, 4}, got.Shape())
		assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-4)
	})

	t.Run("batched 4d", func(t *testing.T) {
		a := raw(t, seq(2*3*2*5), 2, 3, 2, 5)
		w := raw(t, seq(2*3*5*4), 2, 3, 5, 4)
		got := b.MatMul(a, w, false)
		require.Equal(t, tensor.Shape{2, 3, 2, 4}, got.Shape())
		for i := 0; i < 6; i++ {
			want := naiveMatMul(a.Data()[i*10:(i+1)*10], w.Data()[i*20:(i+1)*20], 2, 5, 4)
			assert.InDeltaSlice(t, want, got.Data()[i*8:(i+1)*8], 1e-2)
		}
	})

	t.Run("mismatch panics", func(t *testing.T) {
		assert.Panics(t, func() { b.MatMul(raw(t, seq(6), 2, 3), raw(t, seq(8), 2, 4), false) })
		assert.Panics(t, func() { b.MatMul(raw(t, seq(6), 1, 2, 3), raw(t, seq(12), 2, 3, 2), false) })
	})
}

type fakeAccelerator struct {
	calls int
	err   error
}

func (f *fakeAccelerator) Name() string { return "fake" }

func (f *fakeAccelerator) MatMul(a, b []float32, m, k, n int, transB bool) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float32, m*n)
	for i := range out {
		out[i] = 42
	}
	return out, nil
}

func TestCPUBackend_Accelerator(t *testing.T) {
	a := raw(t, seq(6), 2, 3)
	w := raw(t, seq(12), 3, 4)

	acc := &fakeAccelerator{}
	got := New(WithAccelerator(acc, 10)).MatMul(a, w, false)
	assert.Equal(t, 1, acc.calls)
	assert.Equal(t, float32(42), got.Data()[0])

	small := &fakeAccelerator{}
	New(WithAccelerator(small, 1000)).MatMul(a, w, false)
	assert.Zero(t, small.calls, "products below the threshold stay on BLAS")

	failing := &fakeAccelerator{err: errors.New("device lost")}
	got = New(WithAccelerator(failing, 1)).MatMul(a, w, false)
	assert.Equal(t, 1, failing.calls)
	assert.InDeltaSlice(t, naiveMatMul(seq(6), seq(12), 2, 3, 4), got.Data(), 1e-4)
}

func TestCPUBackend_Transpose(t *testing.T) {
	b := New()
	x := raw(t, seq(24), 2, 3, 4)

	got := b.Transpose(x, 1, 0, 2)
	require.Equal(t, tensor.Shape{3, 2, 4}, got.Shape())
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				assert.Equal(t, x.At(i, j, k), got.At(j, i, k))
			}
		}
	}

	last := b.Transpose(x)
	require.Equal(t, tensor.Shape{2, 4, 3}, last.Shape())
	assert.Equal(t, x.At(1, 2, 3), last.At(1, 3, 2))

	assert.Panics(t, func() { b.Transpose(x, 0, 0, 1) })
}

func TestCPUBackend_Reshape(t *testing.T) {
	b := New()
	x := raw(t, seq(6), 2, 3)
	y := b.Reshape(x, tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, y.Shape())
	assert.Equal(t, x.Data(), y.Data())
	assert.Panics(t, func() { b.Reshape(x, tensor.Shape{4}) })
}

func TestCPUBackend_SumDim(t *testing.T) {
	b := New()
	x := raw(t, seq(6), 2, 3)

	rows := b.SumDim(x, -1, true)
	assert.Equal(t, tensor.Shape{2, 1}, rows.Shape())
	assert.Equal(t, []float32{6, 15}, rows.Data())

	cols := b.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, cols.Shape())
	assert.Equal(t, []float32{5, 7, 9}, cols.Data())
}

func TestCPUBackend_Softmax(t *testing.T) {
	b := New()
	x := raw(t, []float32{1, 2, 3, -1e9, -1e9, -1e9}, 2, 3)
	got := b.Softmax(x)

	e1, e2, e3 := math.Exp(1), math.Exp(2), math.Exp(3)
	s := e1 + e2 + e3
	assert.InDelta(t, e1/s, got.At(0, 0), 1e-6)
	assert.InDelta(t, e3/s, got.At(0, 2), 1e-6)
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0/3, got.At(1, j), 1e-6, "fully masked row is uniform")
	}
}

func TestCPUBackend_FillMasked(t *testing.T) {
	b := New()
	x := raw(t, seq(8), 2, 1, 4)
	keep, err := tensor.MaskFromBools([]bool{true, true, false, false, true, false, true, false}, tensor.Shape{2, 1, 4})
	require.NoError(t, err)

	got := b.FillMasked(x, keep, -9)
	assert.Equal(t, []float32{1, 2, -9, -9, 5, -9, 7, -9}, got.Data())

	scores := raw(t, seq(2*3*4), 2, 3, 4)
	got = b.FillMasked(scores, keep, 0)
	assert.Equal(t, float32(0), got.At(0, 2, 2), "mask broadcasts over the query axis")
	assert.Equal(t, scores.At(1, 2, 0), got.At(1, 2, 0))

	assert.Panics(t, func() { b.FillMasked(raw(t, seq(4), 1, 4), keep, 0) })
}

func TestCPUBackend_Embedding(t *testing.T) {
	b := New()
	w := raw(t, seq(6), 3, 2)
	ids, err := tensor.NewIndices([]int32{2, 0, 1, 2}, tensor.Shape{2, 2})
	require.NoError(t, err)

	got := b.Embedding(w, ids)
	assert.Equal(t, tensor.Shape{2, 2, 2}, got.Shape())
	assert.Equal(t, []float32{5, 6, 1, 2, 3, 4, 5, 6}, got.Data())

	bad, err := tensor.NewIndices([]int32{3}, tensor.Shape{1, 1})
	require.NoError(t, err)
	assert.Panics(t, func() { b.Embedding(w, bad) })
}

func TestCPUBackend_CrossEntropy(t *testing.T) {
	b := New()
	logits := raw(t, []float32{1, 2, 3, 0, 0, 0, 5, 1, 1}, 3, 3)
	targets, err := tensor.NewIndices([]int32{2, 1, 0}, tensor.Shape{3})
	require.NoError(t, err)

	nll := func(row []float64, t int) float64 {
		var s float64
		for _, v := range row {
			s += math.Exp(v)
		}
		return math.Log(s) - row[t]
	}
	l0 := nll([]float64{1, 2, 3}, 2)
	l1 := nll([]float64{0, 0, 0}, 1)
	l2 := nll([]float64{5, 1, 1}, 0)

	got := b.CrossEntropy(logits, targets, -100)
	assert.Empty(t, got.Shape())
	assert.InDelta(t, (l0+l1+l2)/3, got.Data()[0], 1e-5)

	ignored := b.CrossEntropy(logits, targets, 1)
	assert.InDelta(t, (l0+l2)/2, ignored.Data()[0], 1e-5)

	all, err := tensor.NewIndices([]int32{1, 1, 1}, tensor.Shape{3})
	require.NoError(t, err)
	assert.Equal(t, float32(0), b.CrossEntropy(logits, all, 1).Data()[0])
}
