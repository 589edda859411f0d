package cpu

import (
	"fmt"

	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// Reshape returns x under a new shape. The result shares x's storage; no kernel in this
// backend writes into its inputs.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v into %v", x.Shape(), shape))
	}
	return x.WithShape(shape)
}

// Transpose permutes axes. With no axes the last two are swapped.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	src := x.Shape()
	rank := len(src)
	if len(axes) == 0 {
		if rank < 2 {
			panic(fmt.Sprintf("transpose: need rank >= 2, got %v", src))
		}
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = i
		}
		axes[rank-2], axes[rank-1] = axes[rank-1], axes[rank-2]
	}
	if len(axes) != rank {
		panic(fmt.Sprintf("transpose: %d axes given for rank-%d tensor", len(axes), rank))
	}

	seen := make([]bool, rank)
	outShape := make(tensor.Shape, rank)
	srcStrides := x.Strides()
	permStrides := make([]int, rank)
	for i, ax := range axes {
		if ax < 0 || ax >= rank || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v", axes))
		}
		seen[ax] = true
		outShape[i] = src[ax]
		permStrides[i] = srcStrides[ax]
	}

	out := tensor.MustRaw(outShape)
	sd, od := x.Data(), out.Data()
	last := rank - 1
	inner := outShape[last]
	step := permStrides[last]
	parallel.Range(len(od)/inner, cpu.par, func(start, end int) {
		for r := start; r < end; r++ {
			off, rem := 0, r
			for d := last - 1; d >= 0; d-- {
				off += (rem % outShape[d]) * permStrides[d]
				rem /= outShape[d]
			}
			row := od[r*inner : (r+1)*inner]
			for j := range row {
				row[j] = sd[off+j*step]
			}
		}
	})
	return out
}
