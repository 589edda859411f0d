package ops

import "github.com/born-ml/javi/internal/tensor"

// SoftmaxOp represents softmax along the last axis.
//
// Backward, row by row:
//
//	dL/dx_j = y_j * (dL/dy_j - Σ_i dL/dy_i * y_i)
type SoftmaxOp struct{ unaryOp }

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(x, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{unaryOp{input: x, output: output}}
}

// Backward computes the input gradient.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	y := op.output
	dot := backend.SumDim(backend.Mul(outputGrad, y), -1, true)
	return []*tensor.RawTensor{backend.Mul(y, backend.Sub(outputGrad, dot))}
}
