package nn

import (
	"github.com/born-ml/javi/internal/tensor"
)

// Parameter is a trainable tensor identified by its component path,
// for example "encoder.layers.0.attn.q_linear.weight".
//
// The optimizer updates the tensor data in place, so the RawTensor identity stays
// stable across steps. Gradients are not stored here; autodiff.Backward returns them
// keyed by that RawTensor.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[B]
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the component path.
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] { return p.tensor }

// Shape returns the parameter shape.
func (p *Parameter[B]) Shape() tensor.Shape { return p.tensor.Shape() }
