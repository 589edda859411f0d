package ops

import "github.com/born-ml/javi/internal/tensor"

// SumDimOp represents a sum along one axis.
//
// Backward: the gradient is broadcast back along the reduced axis.
type SumDimOp struct {
	unaryOp
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{unaryOp: unaryOp{input: x, output: output}, dim: x.Shape().Axis(dim), keepDim: keepDim}
}

// Backward computes the input gradient.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	if !op.keepDim {
		kept := shape.Clone()
		kept[op.dim] = 1
		outputGrad = backend.Reshape(outputGrad, kept)
	}
	return []*tensor.RawTensor{expand(outputGrad, shape, backend)}
}
