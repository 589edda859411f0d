package nn

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/tensor"
)

type cpuTensor = *tensor.Tensor[*cpu.CPUBackend]

func randn(t *testing.T, r *rand.Rand, b *cpu.CPUBackend, shape ...int) cpuTensor {
	t.Helper()
	data := make([]float32, tensor.Shape(shape).NumElements())
	for i := range data {
		data[i] = float32(r.NormFloat64())
	}
	x, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return x
}

func TestAttentionCausalWeightsAreZero(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 1))
	b := cpu.New()
	q := randn(t, r, b, 2, 5, 4)
	k := randn(t, r, b, 2, 5, 4)
	v := randn(t, r, b, 2, 5, 4)

	out, weights := Attention(q, k, v, CausalMask(5), nil)
	require.Equal(t, tensor.Shape{2, 5, 4}, out.Shape())

	for batch := range 2 {
		for i := range 5 {
			var sum float32
			for j := range 5 {
				w := weights.At(batch, i, j)
				if j > i {
					assert.Zero(t, w, "position %d attends to future position %d", i, j)
				}
				sum += w
			}
			assert.InDelta(t, 1, sum, 1e-5)
		}
	}
}

func TestAttentionIgnoresPadKeys(t *testing.T) {
	r := rand.New(rand.NewPCG(2, 2))
	b := cpu.New()
	src, err := tensor.NewIndices([]int32{4, 5, 1, 1, 7, 1, 1, 1}, tensor.Shape{2, 4})
	require.NoError(t, err)
	keep := SourceMask(src, 1) // [2, 1, 4]

	q := randn(t, r, b, 2, 3, 4)
	k := randn(t, r, b, 2, 4, 4)
	v := randn(t, r, b, 2, 4, 4)
	_, weights := Attention(q, k, v, keep, nil)

	for batch := range 2 {
		for i := range 3 {
			for j := range 4 {
				if !keep.At(batch, 0, j) {
					assert.Zero(t, weights.At(batch, i, j))
				}
			}
		}
	}
	assert.InDelta(t, 1, weights.At(1, 2, 0), 1e-6, "only one unmasked key")
}

func TestAttentionFullyMaskedRowIsUniform(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 3))
	b := cpu.New()
	keep := tensor.NewMask(tensor.Shape{1, 2, 4})
	keep.Data()[0] = true // row 0 keeps key 0, row 1 keeps nothing

	q := randn(t, r, b, 1, 2, 4)
	k := randn(t, r, b, 1, 4, 4)
	v := randn(t, r, b, 1, 4, 4)
	out, weights := Attention(q, k, v, keep, nil)

	for j := range 4 {
		assert.InDelta(t, 0.25, weights.At(0, 1, j), 1e-6)
	}
	assert.True(t, out.Raw().IsFinite())
}

func TestMultiHeadAttentionShapes(t *testing.T) {
	r := rand.New(rand.NewPCG(4, 4))
	b := cpu.New()
	for _, tc := range []struct{ dModel, heads int }{{8, 1}, {8, 2}, {12, 3}, {16, 4}} {
		mha, err := NewMultiHeadAttention("attn", tc.dModel, tc.heads, 0, nil, rand.NewPCG(1, 2), b)
		require.NoError(t, err)
		assert.Equal(t, tc.heads, mha.Heads())

		q := randn(t, r, b, 2, 3, tc.dModel)
		kv := randn(t, r, b, 2, 5, tc.dModel)
		out, weights := mha.ForwardWithWeights(q, kv, kv, tensor.NewMask(tensor.Shape{2, 1, 5}))
		assert.Equal(t, tensor.Shape{2, 3, tc.dModel}, out.Shape())
		assert.Equal(t, tensor.Shape{2, tc.heads, 3, 5}, weights.Shape())

		self := mha.Forward(q, q, q, nil)
		assert.Equal(t, tensor.Shape{2, 3, tc.dModel}, self.Shape())
	}

	names := []string{}
	mha, err := NewMultiHeadAttention("attn", 8, 2, 0, nil, rand.NewPCG(1, 2), b)
	require.NoError(t, err)
	for _, p := range mha.Parameters() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{
		"attn.q_linear.weight", "attn.q_linear.bias",
		"attn.k_linear.weight", "attn.k_linear.bias",
		"attn.v_linear.weight", "attn.v_linear.bias",
		"attn.out.weight", "attn.out.bias",
	}, names)

	_, err = NewMultiHeadAttention("attn", 10, 3, 0, nil, rand.NewPCG(1, 2), b)
	assert.ErrorIs(t, err, ErrConfigMismatch)
}
