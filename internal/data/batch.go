package data

import (
	"github.com/born-ml/javi/internal/tensor"
)

// Batch holds padded source and target ids, both shaped [size, len].
type Batch struct {
	Src *tensor.Indices
	Trg *tensor.Indices
}

// NewBatch pads the examples into a batch.
func NewBatch(examples []Encoded, srcPad, trgPad int32) *Batch {
	src := make([][]int32, len(examples))
	trg := make([][]int32, len(examples))
	for i, e := range examples {
		src[i], trg[i] = e.Src, e.Trg
	}
	return &Batch{Src: tensor.PadRows(src, srcPad), Trg: tensor.PadRows(trg, trgPad)}
}

// Size returns the number of examples.
func (b *Batch) Size() int { return b.Src.Shape()[0] }

// Shift returns the decoder input trg[:, :-1] and the prediction targets trg[:, 1:].
func (b *Batch) Shift() (input, target *tensor.Indices) {
	n := b.Trg.Shape()[1]
	return b.Trg.Columns(0, n-1), b.Trg.Columns(1, n)
}

// Tokens counts the non-pad target positions the batch is trained on.
func (b *Batch) Tokens(trgPad int32) int {
	_, target := b.Shift()
	return target.NotEqual(trgPad).Count()
}
