package nn

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/tensor"
)

func TestNormStatistics(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 5))
	b := cpu.New()
	x := randn(t, r, b, 3, 4, 16).MulScalar(7).AddScalar(3)

	out := NewNorm("norm", 16, 1e-6, b).Forward(x)
	require.Equal(t, x.Shape(), out.Shape())

	data := out.Data()
	for row := 0; row < len(data); row += 16 {
		values := make([]float64, 16)
		for i := range values {
			values[i] = float64(data[row+i])
		}
		mean, std := stat.MeanStdDev(values, nil)
		assert.InDelta(t, 0, mean, 1e-5)
		assert.InDelta(t, 1, std, 1e-4)
	}
}

func TestNormConstantRowStaysFinite(t *testing.T) {
	b := cpu.New()
	x := tensor.Full(tensor.Shape{1, 4}, 2.5, b)
	out := NewNorm("norm", 4, 1e-6, b).Forward(x)
	assert.Equal(t, []float32{0, 0, 0, 0}, out.Data())
}

func TestFeedForwardAndLinearShapes(t *testing.T) {
	r := rand.New(rand.NewPCG(6, 6))
	b := cpu.New()
	src := rand.NewPCG(1, 1)

	lin := NewLinear("proj", 8, 3, src, b)
	bound := 1 / math.Sqrt(8)
	for _, v := range lin.Weight().Tensor().Data() {
		assert.LessOrEqual(t, math.Abs(float64(v)), bound)
	}
	assert.Equal(t, tensor.Shape{5, 3}, lin.Forward(randn(t, r, b, 5, 8)).Shape())
	assert.Equal(t, tensor.Shape{2, 5, 3}, lin.Forward(randn(t, r, b, 2, 5, 8)).Shape())
	assert.Panics(t, func() { lin.Forward(randn(t, r, b, 2, 7)) })

	ff := NewFeedForward("ff", 8, 32, 0.1, &Mode{}, src, b)
	assert.Equal(t, tensor.Shape{2, 5, 8}, ff.Forward(randn(t, r, b, 2, 5, 8)).Shape())
	assert.Len(t, ff.Parameters(), 4)
}

func TestDropout(t *testing.T) {
	b := cpu.New()
	mode := &Mode{}
	d := NewDropout[*cpu.CPUBackend](0.5, mode, rand.NewPCG(9, 9))
	x := tensor.Ones(tensor.Shape{1000}, b)

	assert.Same(t, x, d.Forward(x), "eval mode is the identity")

	mode.training = true
	out := d.Forward(x).Data()
	zeros := 0
	for _, v := range out {
		if v == 0 {
			zeros++
		} else {
			assert.Equal(t, float32(2), v)
		}
	}
	assert.InDelta(t, 500, zeros, 80)

	assert.Panics(t, func() { NewDropout[*cpu.CPUBackend](1, mode, nil) })
}

func TestMasks(t *testing.T) {
	causal := CausalMask(3)
	assert.Equal(t, tensor.Shape{1, 3, 3}, causal.Shape())
	assert.Equal(t, []bool{
		true, false, false,
		true, true, false,
		true, true, true,
	}, causal.Data())

	src, err := tensor.NewIndices([]int32{5, 6, 1}, tensor.Shape{1, 3})
	require.NoError(t, err)
	trg, err := tensor.NewIndices([]int32{2, 7, 1, 1}, tensor.Shape{1, 4})
	require.NoError(t, err)

	srcMask, trgMask := BuildMasks(src, trg, 1, 1)
	assert.Equal(t, tensor.Shape{1, 1, 3}, srcMask.Shape())
	assert.Equal(t, []bool{true, true, false}, srcMask.Data())

	assert.Equal(t, tensor.Shape{1, 4, 4}, trgMask.Shape())
	assert.Equal(t, []bool{
		true, false, false, false,
		true, true, false, false,
		true, true, false, false,
		true, true, false, false,
	}, trgMask.Data())
}
