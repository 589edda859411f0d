package nn

import (
	"math/rand/v2"

	"github.com/born-ml/javi/internal/tensor"
)

// Embedding is a lookup table mapping token ids to dense vectors.
//
// Weight is [vocab, dim], sampled from N(0, 1) and then replaced by the model-wide
// Xavier pass. Forward maps ids [batch, seq] to [batch, seq, dim]; the backward pass
// scatter-adds into the looked-up rows.
type Embedding[B tensor.Backend] struct {
	weight *Parameter[B]
	vocab  int
	dim    int
}

// NewEmbedding creates an embedding table whose weight is named prefix.weight.
func NewEmbedding[B tensor.Backend](prefix string, vocab, dim int, src rand.Source, backend B) *Embedding[B] {
	return &Embedding[B]{
		weight: NewParameter(join(prefix, "weight"), Normal(tensor.Shape{vocab, dim}, src, backend)),
		vocab:  vocab,
		dim:    dim,
	}
}

// Forward looks up ids. Ids outside [0, vocab) panic.
func (e *Embedding[B]) Forward(ids *tensor.Indices) *tensor.Tensor[B] {
	return e.weight.Tensor().Embedding(ids)
}

// Weight returns the embedding table.
func (e *Embedding[B]) Weight() *Parameter[B] { return e.weight }

// Parameters returns the table.
func (e *Embedding[B]) Parameters() []*Parameter[B] { return []*Parameter[B]{e.weight} }
