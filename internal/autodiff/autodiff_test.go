package autodiff_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/javi/internal/autodiff"
	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/tensor"
)

type backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

type tt = *tensor.Tensor[backend]

func randTensor(t *testing.T, r *rand.Rand, b backend, shape ...int) tt {
	t.Helper()
	data := make([]float32, tensor.Shape(shape).NumElements())
	for i := range data {
		data[i] = float32(r.NormFloat64())
	}
	x, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return x
}

// scalarize reduces out to a scalar with fixed pseudo-random weights so that every
// output element receives a distinct upstream gradient.
func scalarize(out tt, b backend) tt {
	r := rand.New(rand.NewPCG(7, 7))
	w := make([]float32, len(out.Data()))
	for i := range w {
		w[i] = float32(r.Float64()*2 - 1)
	}
	wt, _ := tensor.FromSlice(w, out.Shape(), b)
	return out.Mul(wt).Reshape(-1).SumDim(0, false)
}

// checkGradients compares tape gradients of f with central finite differences.
func checkGradients(t *testing.T, inputs []tt, f func(xs []tt) tt) {
	t.Helper()
	b := inputs[0].Backend()
	tape := b.Tape()

	tape.Clear()
	tape.StartRecording()
	loss := scalarize(f(inputs), b)
	grads := autodiff.Backward(loss, b)
	tape.StopRecording()
	tape.Clear()

	const eps = 1e-2
	eval := func() float64 { return float64(scalarize(f(inputs), b).Item()) }
	for n, x := range inputs {
		g, ok := grads[x.Raw()]
		require.True(t, ok, "no gradient for input %d", n)
		require.Equal(t, x.Shape(), g.Shape())
		data := x.Data()
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := eval()
			data[i] = orig - eps
			minus := eval()
			data[i] = orig
			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, g.Data()[i], 2e-2, "input %d element %d", n, i)
		}
	}
}

func TestGradients(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	b := autodiff.New(cpu.New())

	tests := []struct {
		name   string
		shapes [][]int
		f      func(xs []tt) tt
	}{
		{"add broadcast", [][]int{{2, 3}, {3}}, func(xs []tt) tt { return xs[0].Add(xs[1]) }},
		{"sub broadcast column", [][]int{{2, 3}, {2, 1}}, func(xs []tt) tt { return xs[0].Sub(xs[1]) }},
		{"mul", [][]int{{2, 3}, {2, 3}}, func(xs []tt) tt { return xs[0].Mul(xs[1]) }},
		{"div", [][]int{{2, 3}, {1, 3}}, func(xs []tt) tt { return xs[0].Div(xs[1].Mul(xs[1]).AddScalar(1)) }},
		{"scalars", [][]int{{4}}, func(xs []tt) tt { return xs[0].MulScalar(3).AddScalar(-1) }},
		{"matmul", [][]int{{2, 3}, {3, 4}}, func(xs []tt) tt { return xs[0].MatMul(xs[1]) }},
		{"matmul transB batched", [][]int{{2, 2, 3}, {2, 4, 3}}, func(xs []tt) tt { return xs[0].MatMulT(xs[1]) }},
		{"transpose", [][]int{{2, 3, 4}}, func(xs []tt) tt { return xs[0].Transpose(2, 0, 1) }},
		{"reshape", [][]int{{2, 6}}, func(xs []tt) tt { return xs[0].Reshape(3, -1) }},
		{"softmax", [][]int{{3, 5}}, func(xs []tt) tt { return xs[0].Softmax() }},
		{"sum dim", [][]int{{2, 3, 4}}, func(xs []tt) tt { return xs[0].SumDim(1, false) }},
		{"mean dim keep", [][]int{{2, 3}}, func(xs []tt) tt { return xs[0].MeanDim(-1, true) }},
		{"sqrt", [][]int{{6}}, func(xs []tt) tt { return xs[0].Mul(xs[0]).AddScalar(1).Sqrt() }},
		{"normalize rows", [][]int{{3, 5}}, func(xs []tt) tt {
			x := xs[0]
			c := x.Sub(x.MeanDim(-1, true))
			std := c.Mul(c).SumDim(-1, true).MulScalar(1.0 / 4).Sqrt()
			return c.Div(std.AddScalar(1e-6))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inputs := make([]tt, len(tc.shapes))
			for i, s := range tc.shapes {
				inputs[i] = randTensor(t, r, b, s...)
			}
			checkGradients(t, inputs, tc.f)
		})
	}
}

func TestGradients_ReLU(t *testing.T) {
	b := autodiff.New(cpu.New())
	x, err := tensor.FromSlice([]float32{-2, -1, -0.5, 0.5, 1, 2}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)
	checkGradients(t, []tt{x}, func(xs []tt) tt { return xs[0].ReLU() })
}

func TestGradients_FillMasked(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	b := autodiff.New(cpu.New())
	keep, err := tensor.MaskFromBools([]bool{true, false, true, true}, tensor.Shape{1, 4})
	require.NoError(t, err)

	x := randTensor(t, r, b, 2, 4)
	checkGradients(t, []tt{x}, func(xs []tt) tt {
		return xs[0].FillMasked(keep, -1e9).Softmax()
	})
}

func TestGradients_EmbeddingAndCrossEntropy(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	b := autodiff.New(cpu.New())
	ids, err := tensor.NewIndices([]int32{1, 3, 1, 0}, tensor.Shape{2, 2})
	require.NoError(t, err)
	targets, err := tensor.NewIndices([]int32{2, 0, 1, 4}, tensor.Shape{4})
	require.NoError(t, err)

	table := randTensor(t, r, b, 4, 3)
	proj := randTensor(t, r, b, 3, 5)
	checkGradients(t, []tt{table, proj}, func(xs []tt) tt {
		h := xs[0].Embedding(ids).Reshape(4, 3)
		return h.MatMul(xs[1]).CrossEntropy(targets, 4)
	})
}

func TestGradientAccumulatesOverReuse(t *testing.T) {
	b := autodiff.New(cpu.New())
	b.Tape().StartRecording()
	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1}, b)
	require.NoError(t, err)

	y := x.Mul(x).Add(x) // x² + x
	grads := autodiff.Backward(y, b)
	assert.InDelta(t, 7.0, grads[x.Raw()].Data()[0], 1e-6)
}

func TestTapeRecordingControl(t *testing.T) {
	b := autodiff.New(cpu.New())
	x := tensor.Ones(tensor.Shape{2}, b)

	x.Add(x)
	assert.Zero(t, b.Tape().NumOps(), "nothing is recorded before StartRecording")

	b.Tape().StartRecording()
	x.Add(x).MulScalar(2)
	assert.Equal(t, 2, b.Tape().NumOps())

	b.Tape().Clear()
	assert.Zero(t, b.Tape().NumOps())
	assert.True(t, b.Tape().IsRecording())

	assert.Panics(t, func() { autodiff.Backward(x, b) })
	assert.Equal(t, "Autodiff(CPU)", b.Name())
}
