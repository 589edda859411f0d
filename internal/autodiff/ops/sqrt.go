package ops

import "github.com/born-ml/javi/internal/tensor"

// SqrtOp represents output = sqrt(x).
//
// Backward: d(sqrt(x))/dx = 1 / (2*sqrt(x)). The gradient is defined as 0 where the
// output is 0, which keeps normalization of constant rows finite.
type SqrtOp struct{ unaryOp }

// NewSqrtOp creates a new SqrtOp.
func NewSqrtOp(x, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{unaryOp{input: x, output: output}}
}

// Backward computes the input gradient.
func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := tensor.MustRaw(op.input.Shape())
	gd, od, yd := grad.Data(), outputGrad.Data(), op.output.Data()
	for i, y := range yd {
		if y > 0 {
			gd[i] = od[i] * 0.5 / y
		}
	}
	return []*tensor.RawTensor{grad}
}
