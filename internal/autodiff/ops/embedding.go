package ops

import "github.com/born-ml/javi/internal/tensor"

// EmbeddingOp represents a row gather from a [vocab, dim] table.
//
// Backward: gradients of repeated ids are summed into the same table row.
type EmbeddingOp struct {
	unaryOp
	ids *tensor.Indices
}

// NewEmbeddingOp creates a new EmbeddingOp.
func NewEmbeddingOp(weight, output *tensor.RawTensor, ids *tensor.Indices) *EmbeddingOp {
	return &EmbeddingOp{unaryOp: unaryOp{input: weight, output: output}, ids: ids}
}

// Backward scatter-adds the output gradient into a zero table.
func (op *EmbeddingOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := tensor.MustRaw(op.input.Shape())
	dim := op.input.Shape()[1]
	gd, od := grad.Data(), outputGrad.Data()
	for i, id := range op.ids.Data() {
		row := gd[int(id)*dim : (int(id)+1)*dim]
		for j, v := range od[i*dim : (i+1)*dim] {
			row[j] += v
		}
	}
	return []*tensor.RawTensor{grad}
}
