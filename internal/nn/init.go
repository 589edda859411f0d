package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/javi/internal/tensor"
)

// XavierUniform draws from U(-a, a) with a = sqrt(6 / (fanIn + fanOut)).
func XavierUniform[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, src rand.Source, backend B) *tensor.Tensor[B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return sample(shape, distuv.Uniform{Min: -bound, Max: bound, Src: src}, backend)
}

// Uniform draws from U(-bound, bound).
func Uniform[B tensor.Backend](bound float64, shape tensor.Shape, src rand.Source, backend B) *tensor.Tensor[B] {
	return sample(shape, distuv.Uniform{Min: -bound, Max: bound, Src: src}, backend)
}

// Normal draws from N(0, 1).
func Normal[B tensor.Backend](shape tensor.Shape, src rand.Source, backend B) *tensor.Tensor[B] {
	return sample(shape, distuv.Normal{Mu: 0, Sigma: 1, Src: src}, backend)
}

// fans follows the convention for a [out, in] weight: fanIn = in, fanOut = out.
func fans(shape tensor.Shape) (fanIn, fanOut int) {
	receptive := 1
	for _, d := range shape[2:] {
		receptive *= d
	}
	return shape[1] * receptive, shape[0] * receptive
}

func sample[B tensor.Backend](shape tensor.Shape, dist interface{ Rand() float64 }, backend B) *tensor.Tensor[B] {
	raw := tensor.MustRaw(shape)
	data := raw.Data()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
	return tensor.New(raw, backend)
}

// resetXavier re-initializes every parameter with more than one dimension in place.
// One-dimensional parameters (biases, norm scales) keep their initial values.
func resetXavier[B tensor.Backend](params []*Parameter[B], src rand.Source) {
	for _, p := range params {
		shape := p.Shape()
		if len(shape) < 2 {
			continue
		}
		fanIn, fanOut := fans(shape)
		bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
		dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}
		data := p.Tensor().Data()
		for i := range data {
			data[i] = float32(dist.Rand())
		}
	}
}
