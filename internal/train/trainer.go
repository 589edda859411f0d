package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/born-ml/javi/internal/autodiff"
	"github.com/born-ml/javi/internal/data"
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/optim"
)

// ErrNonFiniteLoss is returned when a batch produces a NaN or infinite loss.
var ErrNonFiniteLoss = errors.New("train: loss is not finite")

// Batches yields one epoch of batches per call.
type Batches interface {
	Batches() []*data.Batch
}

// Config controls a Trainer.
type Config struct {
	SrcPad     int32
	TrgPad     int32
	PrintEvery int     // iterations per progress record; 0 means 50
	Train      Batches // required by Run
	Validation Batches // optional
	Checkpoint string  // written after every epoch when set
}

// Option customizes a Trainer.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the progress logger. Without it the trainer is silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Trainer runs optimization steps over a model whose backend records gradients.
type Trainer[B autodiff.BackwardCapable] struct {
	model  *nn.Transformer[B]
	opt    optim.Optimizer
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a trainer. The optimizer must have been built over model.Parameters().
func New[B autodiff.BackwardCapable](model *nn.Transformer[B], opt optim.Optimizer, cfg Config, opts ...Option) *Trainer[B] {
	o := options{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, apply := range opts {
		apply(&o)
	}
	if cfg.PrintEvery <= 0 {
		cfg.PrintEvery = 50
	}
	return &Trainer[B]{model: model, opt: opt, cfg: cfg, logger: o.logger, now: o.now}
}

// NewSession starts a session on the trainer's clock.
func (t *Trainer[B]) NewSession() *Session { return NewSession(t.now()) }

// Step trains on one batch and returns its loss.
func (t *Trainer[B]) Step(s *Session, batch *data.Batch) (float64, error) {
	backend := t.model.Backend()
	tape := backend.Tape()
	tape.Clear()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	input, target := batch.Shift()
	srcMask, trgMask := nn.BuildMasks(batch.Src, input, t.cfg.SrcPad, t.cfg.TrgPad)
	logits := t.model.Forward(batch.Src, input, srcMask, trgMask)
	loss := nn.SequenceLoss(logits, target, t.cfg.TrgPad)

	value := float64(loss.Item())
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value, fmt.Errorf("%w: step %d", ErrNonFiniteLoss, s.Step+1)
	}

	grads := autodiff.Backward(loss, backend)
	tape.StopRecording()
	t.opt.Step(grads)

	s.observe(value)
	return value, nil
}

// Evaluate returns the mean per-token loss over batches with dropout disabled and
// no gradient recording. The model's training mode is restored afterwards.
func (t *Trainer[B]) Evaluate(batches []*data.Batch) float64 {
	if len(batches) == 0 {
		return math.NaN()
	}
	training := t.model.Training()
	t.model.SetTraining(false)
	defer t.model.SetTraining(training)

	tape := t.model.Backend().Tape()
	tape.StopRecording()

	var sum float64
	var tokens int
	for _, b := range batches {
		input, target := b.Shift()
		srcMask, trgMask := nn.BuildMasks(b.Src, input, t.cfg.SrcPad, t.cfg.TrgPad)
		logits := t.model.Forward(b.Src, input, srcMask, trgMask)
		n := b.Tokens(t.cfg.TrgPad)
		sum += float64(nn.SequenceLoss(logits, target, t.cfg.TrgPad).Item()) * float64(n)
		tokens += n
	}
	if tokens == 0 {
		return math.NaN()
	}
	return sum / float64(tokens)
}

// Run trains until the session has completed epochs epochs. It stops between batches
// when ctx is done and returns ctx.Err().
func (t *Trainer[B]) Run(ctx context.Context, s *Session, epochs int) error {
	if t.cfg.Train == nil {
		return errors.New("train: no training batches configured")
	}
	t.logger.Info("training started",
		"run_id", s.RunID,
		"parameters", t.model.NumParameters(),
		"start_epoch", s.Epoch+1,
		"epochs", epochs)

	for s.Epoch < epochs {
		t.model.SetTraining(true)
		s.Iteration = 0
		for _, b := range t.cfg.Train.Batches() {
			if err := ctx.Err(); err != nil {
				t.model.SetTraining(false)
				return err
			}
			if _, err := t.Step(s, b); err != nil {
				t.model.SetTraining(false)
				return err
			}
			if s.Iteration%t.cfg.PrintEvery == 0 {
				t.logProgress(s.flush(t.now()))
			}
		}
		t.model.SetTraining(false)
		if err := t.endEpoch(s); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer[B]) endEpoch(s *Session) error {
	s.Epoch++
	attrs := []any{"epoch", s.Epoch, "step", s.Step, "loss", s.LastLoss}
	if t.cfg.Validation != nil {
		attrs = append(attrs, "val_loss", t.Evaluate(t.cfg.Validation.Batches()))
	}
	if t.cfg.Checkpoint != "" {
		if err := t.Save(s, t.cfg.Checkpoint); err != nil {
			return err
		}
		attrs = append(attrs, "checkpoint", t.cfg.Checkpoint)
	}
	t.logger.Info("epoch finished", attrs...)
	return nil
}

// Save writes the model, optimizer state and session progress to path.
func (t *Trainer[B]) Save(s *Session, path string) error {
	ckpt := &nn.Checkpoint[B]{
		Model:     t.model,
		Optimizer: t.opt,
		RunID:     s.RunID,
		Epoch:     s.Epoch,
		Step:      s.Step,
		Loss:      s.LastLoss,
		CreatedAt: t.now(),
	}
	if err := ckpt.Save(path); err != nil {
		return fmt.Errorf("train: save epoch %d: %w", s.Epoch, err)
	}
	return nil
}

func (t *Trainer[B]) logProgress(p Progress) {
	t.logger.Info("training progress",
		"elapsed_min", int(p.Elapsed.Minutes()),
		"epoch", p.Epoch,
		"iter", p.Iteration,
		"loss", p.Loss,
		"perplexity", p.Perplexity,
		"window", p.Window)
}
