package autodiff

import (
	"github.com/born-ml/javi/internal/tensor"
)

// BackwardCapable is a backend that owns a gradient tape.
// AutodiffBackend implements this interface.
type BackwardCapable interface {
	tensor.Backend
	Tape() *GradientTape
}

// Backward computes gradients of t with respect to every recorded tensor.
// t is seeded with ones, so for a scalar loss the result holds dLoss/dx.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x, _ := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
//	grads[x.Raw()].Data()[0] // 6
func Backward[B BackwardCapable](t *tensor.Tensor[B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.Tape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}
	seed := tensor.MustRaw(t.Shape())
	for i := range seed.Data() {
		seed.Data()[i] = 1
	}
	return tape.Backward(t.Raw(), seed, backend)
}
