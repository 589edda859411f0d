// Package ops defines the differentiable operations recorded on a gradient tape.
//
// Each operation keeps references to its inputs and output from the forward pass and
// implements Backward, which maps the gradient of the output to gradients of the inputs.
//
// Supported operations:
//   - AddOp, SubOp, MulOp, DivOp: broadcasting arithmetic
//   - MulScalarOp, AddScalarOp: arithmetic with a constant
//   - MatMulOp: (batched) matrix product, optionally with the right operand transposed
//   - ReshapeOp, TransposeOp: shape manipulation
//   - SqrtOp, ReLUOp, SoftmaxOp: element-wise and row-wise math
//   - SumDimOp: reduction along one axis
//   - FillMaskedOp: attention masking (no gradient through masked positions)
//   - EmbeddingOp: row gather with scatter-add backward
//   - CrossEntropyOp: fused log-softmax and negative log-likelihood
package ops

import "github.com/born-ml/javi/internal/tensor"

// Operation is a differentiable node in the computation graph.
type Operation interface {
	// Backward returns one gradient per input, in the order of Inputs.
	// A nil entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the differentiable inputs of the operation.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor produced by the forward pass.
	Output() *tensor.RawTensor
}
