package nn

import (
	"math/rand/v2"

	"github.com/born-ml/javi/internal/tensor"
)

// FeedForward is the position-wise network linear_2(dropout(relu(linear_1(x)))).
type FeedForward[B tensor.Backend] struct {
	linear1 *Linear[B]
	linear2 *Linear[B]
	dropout *Dropout[B]
}

// NewFeedForward creates a block expanding dModel to dFF and back.
func NewFeedForward[B tensor.Backend](prefix string, dModel, dFF int, dropout float64, mode *Mode, src rand.Source, backend B) *FeedForward[B] {
	return &FeedForward[B]{
		linear1: NewLinear(join(prefix, "linear_1"), dModel, dFF, src, backend),
		linear2: NewLinear(join(prefix, "linear_2"), dFF, dModel, src, backend),
		dropout: NewDropout[B](dropout, mode, src),
	}
}

// Forward maps [..., dModel] to [..., dModel].
func (f *FeedForward[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	return f.linear2.Forward(f.dropout.Forward(f.linear1.Forward(x).ReLU()))
}

// Parameters returns both projections' parameters.
func (f *FeedForward[B]) Parameters() []*Parameter[B] {
	return collect[B](f.linear1, f.linear2)
}
