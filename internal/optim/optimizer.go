// Package optim implements the optimizers used to train the translation model.
//
//   - Optimizer: common interface, checkpointable through nn.OptimizerState
//   - Adam: Adam with bias correction (the default for training)
//   - SGD: plain or momentum SGD
//
// Example:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.DefaultAdamConfig())
//
//	backend.Tape().StartRecording()
//	loss := nn.SequenceLoss(model.Forward(src, trgIn, srcMask, trgMask), trgOut, pad)
//	grads := autodiff.Backward(loss, backend)
//	optimizer.Step(grads)
//	backend.Tape().Clear()
package optim

import (
	"fmt"

	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// Optimizer updates parameters in place from a gradient map produced by autodiff.Backward.
type Optimizer interface {
	nn.OptimizerState

	// Step applies one update. Parameters without a gradient are left unchanged.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LR returns the current learning rate.
	LR() float32

	// SetLR changes the learning rate, e.g. from a schedule.
	SetLR(lr float32)
}

// gradient returns the gradient of param in grads, or nil when it received none.
func gradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	return grads[param.Tensor().Raw()]
}

// stepConfig parallelizes updates across parameters; each parameter is touched by one goroutine.
var stepConfig = parallel.Config{Enabled: true, NumWorkers: parallel.DefaultConfig().NumWorkers, MinChunkSize: 4}

// loadMoments copies state[prefix+name] into dst for every parameter.
func loadMoments[B tensor.Backend](params []*nn.Parameter[B], state map[string]*tensor.RawTensor, prefix string, dst [][]float32) error {
	for i, p := range params {
		raw, ok := state[prefix+p.Name()]
		if !ok {
			dst[i] = nil
			continue
		}
		if !raw.Shape().Equal(p.Shape()) {
			return fmt.Errorf("%w: %s%s: expected %v, got %v", nn.ErrShapeMismatch, prefix, p.Name(), p.Shape(), raw.Shape())
		}
		dst[i] = append([]float32(nil), raw.Data()...)
	}
	return nil
}

func momentsToState[B tensor.Backend](params []*nn.Parameter[B], prefix string, moments [][]float32, state map[string]*tensor.RawTensor) {
	for i, p := range params {
		if moments[i] == nil {
			continue
		}
		raw, err := tensor.FromFloat32(moments[i], p.Shape())
		if err != nil {
			panic(err)
		}
		state[prefix+p.Name()] = raw
	}
}
