package nn

import (
	"github.com/born-ml/javi/internal/tensor"
)

// Norm normalizes over the last dimension with a learned scale and shift:
//
//	y = alpha * (x - mean) / (std + eps) + bias
//
// std is the unbiased sample standard deviation (divisor n-1), and eps is added to
// the standard deviation rather than the variance. This differs from LayerNorm and
// is kept for checkpoint compatibility.
type Norm[B tensor.Backend] struct {
	alpha *Parameter[B]
	bias  *Parameter[B]
	size  int
	eps   float32
}

// NewNorm creates a Norm over vectors of the given size. alpha starts at ones, bias at zeros.
func NewNorm[B tensor.Backend](prefix string, size int, eps float32, backend B) *Norm[B] {
	return &Norm[B]{
		alpha: NewParameter(join(prefix, "alpha"), tensor.Ones(tensor.Shape{size}, backend)),
		bias:  NewParameter(join(prefix, "bias"), tensor.Zeros(tensor.Shape{size}, backend)),
		size:  size,
		eps:   eps,
	}
}

// Forward normalizes x [..., size].
func (n *Norm[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	centered := x.Sub(x.MeanDim(-1, true))
	divisor := float32(max(n.size-1, 1))
	std := centered.Mul(centered).SumDim(-1, true).MulScalar(1 / divisor).Sqrt()
	return centered.Div(std.AddScalar(n.eps)).Mul(n.alpha.Tensor()).Add(n.bias.Tensor())
}

// Parameters returns alpha and bias.
func (n *Norm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{n.alpha, n.bias}
}
