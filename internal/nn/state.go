package nn

import (
	"fmt"
	"slices"

	"github.com/born-ml/javi/internal/tensor"
)

// StateDict maps parameter names to their tensors. The tensors are live: later
// optimizer steps are visible through them.
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	params := m.Parameters()
	state := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		state[p.Name()] = p.Tensor().Raw()
	}
	return state
}

// LoadStateDict copies state into the module's parameters.
//
// Every parameter must be present with its exact shape and no extra entries are
// allowed; on error no parameter has been modified.
func LoadStateDict[B tensor.Backend](m Module[B], state map[string]*tensor.RawTensor) error {
	params := m.Parameters()
	known := make(map[string]struct{}, len(params))
	for _, p := range params {
		known[p.Name()] = struct{}{}
		raw, ok := state[p.Name()]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, p.Name())
		}
		if !raw.Shape().Equal(p.Shape()) {
			return fmt.Errorf("%w: %s: expected %v, got %v", ErrShapeMismatch, p.Name(), p.Shape(), raw.Shape())
		}
	}

	var unexpected []string
	for name := range state {
		if _, ok := known[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		slices.Sort(unexpected)
		return fmt.Errorf("%w: unexpected parameters %v", ErrShapeMismatch, unexpected)
	}

	for _, p := range params {
		copy(p.Tensor().Data(), state[p.Name()].Data())
	}
	return nil
}

// StateDict returns the model weights keyed by parameter name.
func (t *Transformer[B]) StateDict() map[string]*tensor.RawTensor { return StateDict[B](t) }

// LoadStateDict restores weights saved by StateDict.
func (t *Transformer[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	return LoadStateDict[B](t, state)
}
