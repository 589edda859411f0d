// Package nn implements the encoder-decoder Transformer used for translation.
//
// The building blocks mirror the layers of the model:
//   - Parameter: named trainable tensor with its gradient
//   - Linear, Embedding, Dropout, Norm: basic layers
//   - PositionalEncoder: fixed sinusoidal position signal
//   - Attention / MultiHeadAttention: scaled dot-product attention with masking
//   - FeedForward: position-wise two-layer network
//   - EncoderLayer, DecoderLayer, Encoder, Decoder: pre-norm residual stacks
//   - Transformer: the full model with its output projection
//   - SourceMask, TargetMask, CausalMask: attention masks
//
// Every module is generic over the compute backend, so the same model runs on the plain CPU
// backend for inference and on the autodiff decorator for training.
package nn

import (
	"github.com/born-ml/javi/internal/tensor"
)

// Module is implemented by every component that owns trainable parameters.
//
// Forward signatures differ between layers (attention takes masks, the encoder takes
// token ids), so the interface only covers parameter discovery.
type Module[B tensor.Backend] interface {
	// Parameters returns all trainable parameters, including those of nested modules,
	// in a stable order.
	Parameters() []*Parameter[B]
}

// Mode is the train/eval switch shared by every Dropout of a model.
type Mode struct {
	training bool
}

// Training reports whether dropout is active.
func (m *Mode) Training() bool { return m != nil && m.training }

// collect concatenates the parameters of several modules.
func collect[B tensor.Backend](modules ...Module[B]) []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
