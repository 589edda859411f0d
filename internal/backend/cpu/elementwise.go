package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// MulScalar multiplies every element by s.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return v * s })
}

// AddScalar adds s to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return v + s })
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return float32(math.Sqrt(float64(v))) })
}

// ReLU computes max(0, x).
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return max(v, 0) })
}

func (cpu *CPUBackend) unary(x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	out := tensor.MustRaw(x.Shape())
	src, dst := x.Data(), out.Data()
	parallel.Range(len(dst), cpu.par, func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(src[i])
		}
	})
	return out
}

// binary applies f under broadcasting. The innermost axis is walked with per-operand
// strides so that broadcast operands (stride 0) are read without materializing them.
func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	shape, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	out := tensor.MustRaw(shape)
	ad, bd, od := a.Data(), b.Data(), out.Data()

	if a.Shape().Equal(b.Shape()) {
		parallel.Range(len(od), cpu.par, func(start, end int) {
			for i := start; i < end; i++ {
				od[i] = f(ad[i], bd[i])
			}
		})
		return out
	}

	as := tensor.BroadcastStrides(a.Shape(), shape)
	bs := tensor.BroadcastStrides(b.Shape(), shape)
	last := len(shape) - 1
	inner := shape[last]
	ai, bi := as[last], bs[last]
	parallel.Range(len(od)/inner, cpu.par, func(start, end int) {
		for r := start; r < end; r++ {
			ao, bo, rem := 0, 0, r
			for d := last - 1; d >= 0; d-- {
				v := rem % shape[d]
				rem /= shape[d]
				ao += v * as[d]
				bo += v * bs[d]
			}
			row := od[r*inner : (r+1)*inner]
			for j := range row {
				row[j] = f(ad[ao+j*ai], bd[bo+j*bi])
			}
		}
	})
	return out
}
