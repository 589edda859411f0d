package nn

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/born-ml/javi/internal/serialization"
	"github.com/born-ml/javi/internal/tensor"
)

// ModelType is written into the header of every model file.
const ModelType = "Transformer"

// OptimizerState is implemented by optimizers whose moments can be checkpointed.
// It lives here so that checkpoints do not depend on the optim package.
type OptimizerState interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(state map[string]*tensor.RawTensor) error
	Name() string
	Hyperparameters() map[string]any
}

// Checkpoint is a model snapshot with optional optimizer state and training progress.
//
// Saving with a nil Optimizer produces a weights-only file that the translator loads.
// Loading never needs an optimizer: its tensors are returned in OptimizerState so
// the caller can restore them after constructing the optimizer over Model.
type Checkpoint[B tensor.Backend] struct {
	Model          *Transformer[B]
	Optimizer      OptimizerState
	OptimizerState map[string]*tensor.RawTensor
	OptimizerType  string // Name() of the optimizer that produced OptimizerState
	RunID          string
	Epoch          int
	Step           int64
	Loss           float64
	Metadata       map[string]string
	CreatedAt      time.Time
}

// Save writes the checkpoint atomically to path.
func (c *Checkpoint[B]) Save(path string) error {
	cfg, err := json.Marshal(c.Model.Config())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	state := make(map[string]*tensor.RawTensor)
	maps.Copy(state, c.Model.StateDict())

	meta := &serialization.CheckpointMeta{
		RunID: c.RunID,
		Epoch: c.Epoch,
		Step:  c.Step,
		Loss:  c.Loss,
	}
	if c.Optimizer != nil {
		for name, raw := range c.Optimizer.StateDict() {
			state[serialization.OptimizerPrefix+name] = raw
		}
		meta.OptimizerType = c.Optimizer.Name()
		meta.OptimizerConfig = c.Optimizer.Hyperparameters()
	}

	header := serialization.Header{
		ModelType:      ModelType,
		CreatedAt:      c.CreatedAt,
		Metadata:       c.Metadata,
		Config:         cfg,
		CheckpointMeta: meta,
	}
	if err := serialization.WriteFile(path, state, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint rebuilds the model stored at path on the given backend.
//
// The architecture comes from the file header; weights are restored bit-for-bit.
// The returned model is in eval mode.
func LoadCheckpoint[B tensor.Backend](path string, backend B, opts ...Option) (*Checkpoint[B], error) {
	state, header, err := serialization.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if header.ModelType != ModelType {
		return nil, fmt.Errorf("%w: model type %q", ErrConfigMismatch, header.ModelType)
	}

	var cfg Config
	if err := json.Unmarshal(header.Config, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	model, err := NewTransformer(cfg, backend, opts...)
	if err != nil {
		return nil, err
	}

	weights, optimizer := serialization.SplitOptimizer(state)
	if err := model.LoadStateDict(weights); err != nil {
		return nil, err
	}

	ckpt := &Checkpoint[B]{
		Model:          model,
		OptimizerState: optimizer,
		Metadata:       header.Metadata,
		CreatedAt:      header.CreatedAt,
	}
	if m := header.CheckpointMeta; m != nil {
		ckpt.RunID = m.RunID
		ckpt.Epoch = m.Epoch
		ckpt.Step = m.Step
		ckpt.Loss = m.Loss
		ckpt.OptimizerType = m.OptimizerType
	}
	return ckpt, nil
}

// LoadTransformer loads only the model from a checkpoint or weights file.
func LoadTransformer[B tensor.Backend](path string, backend B, opts ...Option) (*Transformer[B], error) {
	ckpt, err := LoadCheckpoint(path, backend, opts...)
	if err != nil {
		return nil, err
	}
	return ckpt.Model, nil
}
