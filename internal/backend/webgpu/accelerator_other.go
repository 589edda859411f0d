//go:build !windows

package webgpu

// Accelerator is a placeholder on platforms without the WebGPU native library.
type Accelerator struct{}

// NewAccelerator always fails with ErrUnavailable on this platform.
func NewAccelerator() (*Accelerator, error) { return nil, ErrUnavailable }

// Name identifies the accelerator.
func (a *Accelerator) Name() string { return "WebGPU(unavailable)" }

// MatMul always fails with ErrUnavailable on this platform.
func (a *Accelerator) MatMul(_, _ []float32, _, _, _ int, _ bool) ([]float32, error) {
	return nil, ErrUnavailable
}

// Release is a no-op.
func (a *Accelerator) Release() {}
