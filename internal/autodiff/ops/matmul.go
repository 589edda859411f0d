package ops

import "github.com/born-ml/javi/internal/tensor"

// MatMulOp represents output = a @ b, or a @ b^T when transB is set,
// over the last two axes.
//
// Backward (plain):      dA = dC @ B^T,  dB = A^T @ dC
// Backward (transposed): dA = dC @ B,    dB = dC^T @ A
type MatMulOp struct {
	binaryOp
	transB bool
}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor, transB bool) *MatMulOp {
	return &MatMulOp{binaryOp: newBinaryOp(a, b, output), transB: transB}
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	if op.transB {
		return []*tensor.RawTensor{
			backend.MatMul(outputGrad, b, false),
			backend.MatMul(lastAxesSwapped(outputGrad, backend), a, false),
		}
	}
	return []*tensor.RawTensor{
		backend.MatMul(outputGrad, b, true),
		backend.MatMul(lastAxesSwapped(a, backend), outputGrad, false),
	}
}
