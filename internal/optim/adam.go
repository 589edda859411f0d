package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// Adam implements Adam with bias correction:
//
//	m_t   = beta1 * m_{t-1} + (1-beta1) * g
//	v_t   = beta2 * v_{t-1} + (1-beta2) * g²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	p     = p - lr * m_hat / (sqrt(v_hat) + eps)
//
// Moments are allocated lazily for parameters that receive a gradient. StateDict
// exposes them as "m.<param>" and "v.<param>" plus a one-element "step" counter, so a
// resumed run continues with the same bias correction.
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	cfg    AdamConfig
	t      int
	m      [][]float32
	v      [][]float32
}

// AdamConfig holds Adam hyperparameters.
type AdamConfig struct {
	LR    float32    `yaml:"lr"`
	Betas [2]float32 `yaml:"betas"`
	Eps   float32    `yaml:"eps"`
}

// DefaultAdamConfig returns lr 1e-4, betas (0.9, 0.98), eps 1e-9.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{LR: 1e-4, Betas: [2]float32{0.9, 0.98}, Eps: 1e-9}
}

// NewAdam creates an Adam optimizer. Zero fields of config take their defaults.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	def := DefaultAdamConfig()
	if config.LR == 0 {
		config.LR = def.LR
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = def.Betas[0]
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = def.Betas[1]
	}
	if config.Eps == 0 {
		config.Eps = def.Eps
	}
	return &Adam[B]{
		params: params,
		cfg:    config,
		m:      make([][]float32, len(params)),
		v:      make([][]float32, len(params)),
	}
}

// Step performs one Adam update.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++
	beta1, beta2 := a.cfg.Betas[0], a.cfg.Betas[1]
	bc1 := float32(1 - math.Pow(float64(beta1), float64(a.t)))
	bc2 := float32(1 - math.Pow(float64(beta2), float64(a.t)))

	parallel.For(len(a.params), stepConfig, func(i int) {
		param := a.params[i]
		grad := gradient(param, grads)
		if grad == nil {
			return
		}
		data := param.Tensor().Data()
		if a.m[i] == nil {
			a.m[i] = make([]float32, len(data))
			a.v[i] = make([]float32, len(data))
		}
		m, v, g := a.m[i], a.v[i], grad.Data()
		for j := range data {
			m[j] = beta1*m[j] + (1-beta1)*g[j]
			v[j] = beta2*v[j] + (1-beta2)*g[j]*g[j]
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			data[j] -= a.cfg.LR * mHat / (float32(math.Sqrt(float64(vHat))) + a.cfg.Eps)
		}
	})
}

// LR returns the learning rate.
func (a *Adam[B]) LR() float32 { return a.cfg.LR }

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) { a.cfg.LR = lr }

// Timestep returns the number of steps taken.
func (a *Adam[B]) Timestep() int { return a.t }

// Name identifies the optimizer in checkpoints.
func (a *Adam[B]) Name() string { return "Adam" }

// Hyperparameters returns the configuration for checkpoint headers.
func (a *Adam[B]) Hyperparameters() map[string]any {
	return map[string]any{
		"lr":    a.cfg.LR,
		"beta1": a.cfg.Betas[0],
		"beta2": a.cfg.Betas[1],
		"eps":   a.cfg.Eps,
	}
}

// StateDict exposes the moments without copying, plus the step counter.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	momentsToState(a.params, "m.", a.m, state)
	momentsToState(a.params, "v.", a.v, state)
	step, _ := tensor.FromFloat32([]float32{float32(a.t)}, tensor.Shape{1})
	state["step"] = step
	return state
}

// LoadStateDict restores moments and the step counter.
func (a *Adam[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	step, ok := state["step"]
	if !ok || step.NumElements() != 1 {
		return fmt.Errorf("%w: adam step counter", nn.ErrMissingParameter)
	}
	if err := loadMoments(a.params, state, "m.", a.m); err != nil {
		return err
	}
	if err := loadMoments(a.params, state, "v.", a.v); err != nil {
		return err
	}
	for i := range a.params {
		if (a.m[i] == nil) != (a.v[i] == nil) {
			return fmt.Errorf("%w: adam moments for %s are incomplete", nn.ErrMissingParameter, a.params[i].Name())
		}
	}
	a.t = int(step.Data()[0])
	return nil
}
