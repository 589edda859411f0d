package nn

import (
	"github.com/born-ml/javi/internal/tensor"
)

// SourceMask marks non-pad source positions: [batch, 1, S].
func SourceMask(src *tensor.Indices, pad int32) *tensor.Mask {
	return src.NotEqual(pad).Unsqueeze(1)
}

// CausalMask returns the [1, size, size] no-peek mask: position i may attend to j only when j <= i.
func CausalMask(size int) *tensor.Mask {
	m := tensor.NewMask(tensor.Shape{1, size, size})
	data := m.Data()
	for i := range size {
		for j := 0; j <= i; j++ {
			data[i*size+j] = true
		}
	}
	return m
}

// TargetMask combines target padding with the causal mask: [batch, T, T].
func TargetMask(trg *tensor.Indices, pad int32) *tensor.Mask {
	seq := trg.Shape()[1]
	m, err := trg.NotEqual(pad).Unsqueeze(1).And(CausalMask(seq))
	if err != nil {
		panic(err)
	}
	return m
}

// BuildMasks returns the source and target masks for one batch.
func BuildMasks(src, trg *tensor.Indices, srcPad, trgPad int32) (srcMask, trgMask *tensor.Mask) {
	return SourceMask(src, srcPad), TargetMask(trg, trgPad)
}
