package nn

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/javi/internal/tensor"
)

// Config fixes the model architecture. A checkpoint only loads into a model built
// from the same Config.
type Config struct {
	SrcVocab  int     `json:"src_vocab" yaml:"src_vocab"`
	TrgVocab  int     `json:"trg_vocab" yaml:"trg_vocab"`
	DModel    int     `json:"d_model" yaml:"d_model"`
	Heads     int     `json:"heads" yaml:"heads"`
	Layers    int     `json:"layers" yaml:"layers"`
	DFF       int     `json:"d_ff" yaml:"d_ff"`
	Dropout   float64 `json:"dropout" yaml:"dropout"`
	Eps       float32 `json:"eps" yaml:"eps"`
	MaxSeqLen int     `json:"max_seq_len" yaml:"max_seq_len"`
}

// DefaultConfig returns the reference architecture for the given vocabulary sizes:
// d_model 512, 8 heads, 6 layers, d_ff 2048, dropout 0.1.
func DefaultConfig(srcVocab, trgVocab int) Config {
	return Config{
		SrcVocab:  srcVocab,
		TrgVocab:  trgVocab,
		DModel:    512,
		Heads:     8,
		Layers:    6,
		DFF:       2048,
		Dropout:   0.1,
		Eps:       1e-6,
		MaxSeqLen: 80,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("src_vocab", c.SrcVocab)
	positive("trg_vocab", c.TrgVocab)
	positive("d_model", c.DModel)
	positive("heads", c.Heads)
	positive("layers", c.Layers)
	positive("d_ff", c.DFF)
	positive("max_seq_len", c.MaxSeqLen)
	if c.Heads > 0 && c.DModel%c.Heads != 0 {
		errs = append(errs, fmt.Errorf("d_model %d is not divisible by %d heads", c.DModel, c.Heads))
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		errs = append(errs, fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout))
	}
	if c.Eps <= 0 {
		errs = append(errs, fmt.Errorf("eps must be positive, got %g", c.Eps))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigMismatch, errors.Join(errs...))
	}
	return nil
}

// Option configures model construction.
type Option func(*options)

type options struct {
	src rand.Source
}

// WithSeed makes initialization and dropout deterministic.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15) }
}

// WithSource sets the random source used for initialization and dropout.
func WithSource(src rand.Source) Option {
	return func(o *options) { o.src = src }
}

// Transformer is the encoder-decoder translation model.
//
// Parameter names follow the component paths of the model, e.g.
// "encoder.layers.0.attn.q_linear.weight" or "out.bias", and are the keys of StateDict.
//
// A new model is in eval mode: dropout is disabled until SetTraining(true).
// The random source is shared by all dropout layers, so a model must not run
// concurrent forward passes while training.
type Transformer[B tensor.Backend] struct {
	cfg     Config
	encoder *Encoder[B]
	decoder *Decoder[B]
	out     *Linear[B]
	mode    *Mode
	backend B
}

// NewTransformer builds a model and initializes every parameter with more than one
// dimension from a Xavier uniform distribution.
func NewTransformer[B tensor.Backend](cfg Config, backend B, opts ...Option) (*Transformer[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		o.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	mode := &Mode{}
	encoder, err := NewEncoder("encoder", cfg, mode, o.src, backend)
	if err != nil {
		return nil, err
	}
	decoder, err := NewDecoder("decoder", cfg, mode, o.src, backend)
	if err != nil {
		return nil, err
	}

	t := &Transformer[B]{
		cfg:     cfg,
		encoder: encoder,
		decoder: decoder,
		out:     NewLinear("out", cfg.DModel, cfg.TrgVocab, o.src, backend),
		mode:    mode,
		backend: backend,
	}
	resetXavier(t.Parameters(), o.src)
	return t, nil
}

// Forward computes logits [batch, T, trg_vocab] for src [batch, S] and trg [batch, T].
func (t *Transformer[B]) Forward(src, trg *tensor.Indices, srcMask, trgMask *tensor.Mask) *tensor.Tensor[B] {
	memory := t.Encode(src, srcMask)
	return t.Project(t.Decode(trg, memory, srcMask, trgMask))
}

// Encode runs the encoder stack.
func (t *Transformer[B]) Encode(src *tensor.Indices, srcMask *tensor.Mask) *tensor.Tensor[B] {
	t.checkLength(src)
	return t.encoder.Forward(src, srcMask)
}

// Decode runs the decoder stack over an encoded source.
func (t *Transformer[B]) Decode(trg *tensor.Indices, memory *tensor.Tensor[B], srcMask, trgMask *tensor.Mask) *tensor.Tensor[B] {
	t.checkLength(trg)
	return t.decoder.Forward(trg, memory, srcMask, trgMask)
}

// Project maps decoder states [..., d_model] to vocabulary logits [..., trg_vocab].
func (t *Transformer[B]) Project(hidden *tensor.Tensor[B]) *tensor.Tensor[B] {
	return t.out.Forward(hidden)
}

func (t *Transformer[B]) checkLength(ids *tensor.Indices) {
	if n := ids.Shape()[len(ids.Shape())-1]; n > t.cfg.MaxSeqLen {
		panic(fmt.Sprintf("transformer: sequence length %d exceeds max_seq_len %d", n, t.cfg.MaxSeqLen))
	}
}

// Config returns the architecture the model was built with.
func (t *Transformer[B]) Config() Config { return t.cfg }

// MaxSeqLen returns the longest sequence the positional tables cover.
func (t *Transformer[B]) MaxSeqLen() int { return t.cfg.MaxSeqLen }

// Backend returns the compute backend.
func (t *Transformer[B]) Backend() B { return t.backend }

// SetTraining enables or disables dropout in every layer.
func (t *Transformer[B]) SetTraining(training bool) { t.mode.training = training }

// Training reports whether dropout is enabled.
func (t *Transformer[B]) Training() bool { return t.mode.Training() }

// Parameters returns all trainable parameters: encoder, decoder, then the output projection.
func (t *Transformer[B]) Parameters() []*Parameter[B] {
	return collect[B](t.encoder, t.decoder, t.out)
}

// NumParameters returns the total number of trainable scalars.
func (t *Transformer[B]) NumParameters() int {
	n := 0
	for _, p := range t.Parameters() {
		n += p.Shape().NumElements()
	}
	return n
}
