package optim

import (
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum:
//
//	v = momentum * v + g
//	p = p - lr * v
//
// With momentum 0 the update is p = p - lr * g and no state is kept.
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities [][]float32
}

// SGDConfig holds SGD hyperparameters.
type SGDConfig struct {
	LR       float32 `yaml:"lr"`       // default 0.01
	Momentum float32 `yaml:"momentum"` // in [0, 1)
}

// NewSGD creates an SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make([][]float32, len(params)),
	}
}

// Step performs one update.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	parallel.For(len(s.params), stepConfig, func(i int) {
		param := s.params[i]
		grad := gradient(param, grads)
		if grad == nil {
			return
		}
		data, g := param.Tensor().Data(), grad.Data()
		if s.momentum == 0 {
			for j := range data {
				data[j] -= s.lr * g[j]
			}
			return
		}
		if s.velocities[i] == nil {
			s.velocities[i] = make([]float32, len(data))
		}
		vel := s.velocities[i]
		for j := range data {
			vel[j] = s.momentum*vel[j] + g[j]
			data[j] -= s.lr * vel[j]
		}
	})
}

// LR returns the learning rate.
func (s *SGD[B]) LR() float32 { return s.lr }

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }

// Name identifies the optimizer in checkpoints.
func (s *SGD[B]) Name() string { return "SGD" }

// Hyperparameters returns the configuration for checkpoint headers.
func (s *SGD[B]) Hyperparameters() map[string]any {
	return map[string]any{"lr": s.lr, "momentum": s.momentum}
}

// StateDict returns the momentum buffers as "velocity.<param>".
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	momentsToState(s.params, "velocity.", s.velocities, state)
	return state
}

// LoadStateDict restores momentum buffers.
func (s *SGD[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	return loadMoments(s.params, state, "velocity.", s.velocities)
}
