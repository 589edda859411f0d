// Package cpu implements the reference compute backend.
//
// Matrix products go through gonum's BLAS (single precision). Row-oriented kernels such as
// softmax, broadcasting arithmetic and reductions are split across goroutines with the
// parallel package. Large 2-D products can optionally be offloaded to an Accelerator.
package cpu

import (
	"github.com/born-ml/javi/internal/parallel"
)

// Accelerator offloads dense matrix products, typically to a GPU.
// a is [m, k]; b is [k, n], or [n, k] when transB is set. The result is [m, n].
type Accelerator interface {
	MatMul(a, b []float32, m, k, n int, transB bool) ([]float32, error)
	Name() string
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithParallel overrides the goroutine split used by row kernels and batched products.
func WithParallel(cfg parallel.Config) Option {
	return func(c *CPUBackend) { c.par = cfg }
}

// WithAccelerator routes 2-D matrix products with at least minWork multiply-adds to acc.
// If acc returns an error the product is computed with BLAS instead.
func WithAccelerator(acc Accelerator, minWork int) Option {
	return func(c *CPUBackend) {
		c.acc = acc
		c.accMinWork = minWork
	}
}

// CPUBackend implements tensor.Backend on the host CPU.
type CPUBackend struct {
	par        parallel.Config
	acc        Accelerator
	accMinWork int
}

// New creates a CPU backend.
func New(opts ...Option) *CPUBackend {
	c := &CPUBackend{par: parallel.DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend name, including the accelerator if one is attached.
func (cpu *CPUBackend) Name() string {
	if cpu.acc != nil {
		return "CPU+" + cpu.acc.Name()
	}
	return "CPU"
}
