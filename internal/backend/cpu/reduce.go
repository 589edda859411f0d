package cpu

import (
	"math"

	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// SumDim sums along dim.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.Axis(dim)
	outer, size, inner := split(shape, dim)

	var outShape tensor.Shape
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}
	out := tensor.MustRaw(outShape)
	xd, od := x.Data(), out.Data()
	parallel.Range(outer, cpu.par, func(start, end int) {
		for o := start; o < end; o++ {
			dst := od[o*inner : (o+1)*inner]
			for s := 0; s < size; s++ {
				src := xd[(o*size+s)*inner : (o*size+s+1)*inner]
				for j, v := range src {
					dst[j] += v
				}
			}
		}
	})
	return out
}

// Softmax normalizes each row of the last axis. The row maximum is subtracted before
// exponentiation, so rows filled with one large negative sentinel become uniform.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	width := shape[len(shape)-1]
	out := tensor.MustRaw(shape)
	xd, od := x.Data(), out.Data()
	parallel.Range(len(xd)/width, cpu.par, func(start, end int) {
		for r := start; r < end; r++ {
			softmaxRow(od[r*width:(r+1)*width], xd[r*width:(r+1)*width])
		}
	})
	return out
}

func softmaxRow(dst, src []float32) {
	maxVal := src[0]
	for _, v := range src[1:] {
		maxVal = max(maxVal, v)
	}
	var sum float64
	for i, v := range src {
		e := math.Exp(float64(v - maxVal))
		dst[i] = float32(e)
		sum += e
	}
	inv := float32(1 / sum)
	for i := range dst {
		dst[i] *= inv
	}
}

// split returns the products of the dimensions before, at and after dim.
func split(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}
