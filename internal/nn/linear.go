package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/javi/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W^T + b.
//
// The weight is stored as [out_features, in_features]. Inputs of any rank are accepted;
// the last dimension must equal in_features and the leading dimensions are kept.
//
// Weight and bias start from U(-1/sqrt(in), 1/sqrt(in)). The Transformer later replaces
// every weight matrix with a Xavier uniform sample.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
}

// NewLinear creates a Linear layer whose parameters are named prefix.weight and prefix.bias.
func NewLinear[B tensor.Backend](prefix string, inFeatures, outFeatures int, src rand.Source, backend B) *Linear[B] {
	bound := 1 / math.Sqrt(float64(inFeatures))
	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(join(prefix, "weight"), Uniform(bound, tensor.Shape{outFeatures, inFeatures}, src, backend)),
		bias:        NewParameter(join(prefix, "bias"), Uniform(bound, tensor.Shape{outFeatures}, src, backend)),
	}
}

// Forward maps [..., in_features] to [..., out_features].
func (l *Linear[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := x.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != l.inFeatures {
		panic(fmt.Sprintf("linear: expected last dimension %d, got shape %v", l.inFeatures, shape))
	}

	flat := x.Reshape(-1, l.inFeatures)
	y := flat.MatMulT(l.weight.Tensor()).Add(l.bias.Tensor())
	if len(shape) == 2 {
		return y
	}

	out := make([]int, len(shape))
	copy(out, shape)
	out[len(out)-1] = l.outFeatures
	return y.Reshape(out...)
}

// Weight returns the [out, in] weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the [out] bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// Parameters returns weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}
