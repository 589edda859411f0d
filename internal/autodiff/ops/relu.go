package ops

import "github.com/born-ml/javi/internal/tensor"

// ReLUOp represents output = max(0, x).
//
// Backward: gradient passes where x > 0, zero elsewhere.
type ReLUOp struct{ unaryOp }

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(x, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{unaryOp{input: x, output: output}}
}

// Backward computes the input gradient.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := tensor.MustRaw(op.input.Shape())
	gd, od, xd := grad.Data(), outputGrad.Data(), op.input.Data()
	for i, x := range xd {
		if x > 0 {
			gd[i] = od[i]
		}
	}
	return []*tensor.RawTensor{grad}
}
