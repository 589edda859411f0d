package ops

import "github.com/born-ml/javi/internal/tensor"

// TransposeOp represents an axis permutation.
type TransposeOp struct {
	unaryOp
	axes []int // resolved permutation, never empty
}

// NewTransposeOp creates a new TransposeOp. An empty axes list means the last two
// axes were swapped.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	if len(axes) == 0 {
		rank := len(x.Shape())
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = i
		}
		axes[rank-2], axes[rank-1] = axes[rank-1], axes[rank-2]
	}
	return &TransposeOp{unaryOp: unaryOp{input: x, output: output}, axes: append([]int(nil), axes...)}
}

// Backward applies the inverse permutation.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}
