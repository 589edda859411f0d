package ops

import "github.com/born-ml/javi/internal/tensor"

// reduceBroadcast sums a gradient back to the shape of an operand that was broadcast
// in the forward pass.
//
//	Forward:  a[3,1] + b[3,4] -> c[3,4]
//	Backward: grad_c[3,4] -> grad_a[3,1] (summed along axis 1)
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(target) {
		return grad
	}
	for len(grad.Shape()) > len(target) {
		grad = backend.SumDim(grad, 0, false)
	}
	for i, d := range target {
		if d == 1 && grad.Shape()[i] != 1 {
			grad = backend.SumDim(grad, i, true)
		}
	}
	if !grad.Shape().Equal(target) {
		grad = backend.Reshape(grad, target)
	}
	return grad
}

// expand broadcasts grad up to shape.
func expand(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}
	return backend.Add(tensor.MustRaw(shape), grad)
}

// lastAxesSwapped returns x with its last two axes transposed.
func lastAxesSwapped(x *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.Transpose(x)
}

// binaryOp holds the bookkeeping shared by two-input operations.
type binaryOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func newBinaryOp(a, b, output *tensor.RawTensor) binaryOp {
	return binaryOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Inputs returns [a, b].
func (op *binaryOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the forward result.
func (op *binaryOp) Output() *tensor.RawTensor { return op.output }

// unaryOp holds the bookkeeping shared by single-input operations.
type unaryOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// Inputs returns [x].
func (op *unaryOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the forward result.
func (op *unaryOp) Output() *tensor.RawTensor { return op.output }
