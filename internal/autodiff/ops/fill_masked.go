package ops

import "github.com/born-ml/javi/internal/tensor"

// FillMaskedOp represents overwriting masked-out positions with a constant.
//
// Backward: gradient passes where keep is true, zero where the value was overwritten.
type FillMaskedOp struct {
	unaryOp
	keep *tensor.Mask
}

// NewFillMaskedOp creates a new FillMaskedOp.
func NewFillMaskedOp(x, output *tensor.RawTensor, keep *tensor.Mask) *FillMaskedOp {
	return &FillMaskedOp{unaryOp: unaryOp{input: x, output: output}, keep: keep}
}

// Backward computes the input gradient.
func (op *FillMaskedOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.FillMasked(outputGrad, op.keep, 0)}
}
