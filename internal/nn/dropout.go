package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/javi/internal/tensor"
)

// Dropout zeroes elements with probability p during training and scales the survivors
// by 1/(1-p). In eval mode it is the identity.
//
// All dropout layers of a model share one Mode, so switching the model switches them all.
type Dropout[B tensor.Backend] struct {
	p    float64
	mode *Mode
	keep distuv.Bernoulli
}

// NewDropout creates a dropout layer. p must be in [0, 1).
func NewDropout[B tensor.Backend](p float64, mode *Mode, src rand.Source) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout: probability must be in [0, 1), got %g", p))
	}
	return &Dropout[B]{p: p, mode: mode, keep: distuv.Bernoulli{P: 1 - p, Src: src}}
}

// Forward applies dropout when the shared mode is training.
func (d *Dropout[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !d.mode.Training() || d.p == 0 {
		return x
	}

	scale := float32(1 / (1 - d.p))
	mask := tensor.MustRaw(x.Shape())
	data := mask.Data()
	for i := range data {
		data[i] = float32(d.keep.Rand()) * scale
	}
	return x.Mul(tensor.New(mask, x.Backend()))
}
