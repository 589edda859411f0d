package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/javi/internal/tensor"
)

// MaskedScore is written into attention scores wherever the mask is false.
// It is finite so that a fully masked row softmaxes to a uniform distribution
// instead of NaN.
const MaskedScore = -1e9

// Attention computes scaled dot-product attention:
//
//	weights = softmax(Q @ K^T / sqrt(d_k), masked positions set to MaskedScore)
//	output  = dropout(weights) @ V
//
// q is [..., Tq, d_k], k and v are [..., Tk, d_k] with identical leading dimensions.
// keep, when non-nil, must broadcast to [..., Tq, Tk]; false entries are excluded.
// dropout may be nil. The returned weights are taken before dropout.
func Attention[B tensor.Backend](q, k, v *tensor.Tensor[B], keep *tensor.Mask, dropout *Dropout[B]) (output, weights *tensor.Tensor[B]) {
	dk := q.Shape()[len(q.Shape())-1]
	scores := q.MatMulT(k).MulScalar(float32(1 / math.Sqrt(float64(dk))))
	if keep != nil {
		scores = scores.FillMasked(keep, MaskedScore)
	}
	weights = scores.Softmax()

	attended := weights
	if dropout != nil {
		attended = dropout.Forward(weights)
	}
	return attended.MatMul(v), weights
}

// MultiHeadAttention projects queries, keys and values into h subspaces of size
// d_model/h, attends in each head independently, concatenates the heads and applies
// an output projection.
//
// Parameters are named prefix.q_linear, prefix.k_linear, prefix.v_linear and prefix.out.
type MultiHeadAttention[B tensor.Backend] struct {
	qLinear *Linear[B]
	kLinear *Linear[B]
	vLinear *Linear[B]
	out     *Linear[B]
	dropout *Dropout[B]
	dModel  int
	heads   int
	dk      int
}

// NewMultiHeadAttention fails when dModel is not divisible by heads.
func NewMultiHeadAttention[B tensor.Backend](
	prefix string,
	dModel, heads int,
	dropout float64,
	mode *Mode,
	src rand.Source,
	backend B,
) (*MultiHeadAttention[B], error) {
	if heads <= 0 || dModel%heads != 0 {
		return nil, fmt.Errorf("%w: d_model %d is not divisible by %d heads", ErrConfigMismatch, dModel, heads)
	}
	return &MultiHeadAttention[B]{
		qLinear: NewLinear(join(prefix, "q_linear"), dModel, dModel, src, backend),
		kLinear: NewLinear(join(prefix, "k_linear"), dModel, dModel, src, backend),
		vLinear: NewLinear(join(prefix, "v_linear"), dModel, dModel, src, backend),
		out:     NewLinear(join(prefix, "out"), dModel, dModel, src, backend),
		dropout: NewDropout[B](dropout, mode, src),
		dModel:  dModel,
		heads:   heads,
		dk:      dModel / heads,
	}, nil
}

// Forward attends from query [batch, Tq, d_model] over key and value [batch, Tk, d_model].
//
// keep is [batch, 1, Tk] for padding masks or [batch, Tq, Tk] for combined
// padding and causal masks; it is shared by all heads. A nil mask attends everywhere.
func (m *MultiHeadAttention[B]) Forward(query, key, value *tensor.Tensor[B], keep *tensor.Mask) *tensor.Tensor[B] {
	out, _ := m.forward(query, key, value, keep)
	return out
}

// ForwardWithWeights is Forward that also returns the per-head attention weights
// [batch, heads, Tq, Tk].
func (m *MultiHeadAttention[B]) ForwardWithWeights(query, key, value *tensor.Tensor[B], keep *tensor.Mask) (*tensor.Tensor[B], *tensor.Tensor[B]) {
	return m.forward(query, key, value, keep)
}

func (m *MultiHeadAttention[B]) forward(query, key, value *tensor.Tensor[B], keep *tensor.Mask) (*tensor.Tensor[B], *tensor.Tensor[B]) {
	batch, tq := query.Shape()[0], query.Shape()[1]

	q := m.split(m.qLinear.Forward(query))
	k := m.split(m.kLinear.Forward(key))
	v := m.split(m.vLinear.Forward(value))

	var headMask *tensor.Mask
	if keep != nil {
		headMask = keep.Unsqueeze(1)
	}
	attended, weights := Attention(q, k, v, headMask, m.dropout)

	concat := attended.Transpose(0, 2, 1, 3).Reshape(batch, tq, m.dModel)
	return m.out.Forward(concat), weights
}

// split reshapes [batch, T, d_model] to [batch, heads, T, d_k].
func (m *MultiHeadAttention[B]) split(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := x.Shape()
	return x.Reshape(shape[0], shape[1], m.heads, m.dk).Transpose(0, 2, 1, 3)
}

// Heads returns the number of attention heads.
func (m *MultiHeadAttention[B]) Heads() int { return m.heads }

// Parameters returns the four projections' parameters.
func (m *MultiHeadAttention[B]) Parameters() []*Parameter[B] {
	return collect[B](m.qLinear, m.kLinear, m.vLinear, m.out)
}
