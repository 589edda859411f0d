package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/javi/internal/autodiff"
	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/config"
	"github.com/born-ml/javi/internal/data"
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/optim"
	"github.com/born-ml/javi/internal/tokenizer"
	"github.com/born-ml/javi/internal/train"
	"github.com/born-ml/javi/internal/vocab"
)

type trainBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

type trainOptions struct {
	epochs     int
	checkpoint string
	resume     bool
}

func newTrainCmd(a *app) *cobra.Command {
	var o trainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the model",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd.Context(), a, o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.epochs, "epochs", 0, "number of epochs (overrides train.epochs)")
	f.StringVar(&o.checkpoint, "checkpoint", "", "checkpoint path (overrides data.checkpoint)")
	f.BoolVar(&o.resume, "resume", false, "continue from the checkpoint if it exists")
	return cmd
}

func runTrain(ctx context.Context, a *app, o trainOptions) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	if o.epochs > 0 {
		cfg.Train.Epochs = o.epochs
	}
	if o.checkpoint != "" {
		cfg.Data.Checkpoint = o.checkpoint
	}

	srcTok, trgTok, err := tokenizers(cfg)
	if err != nil {
		return err
	}
	src, trg, err := loadVocabs(cfg)
	if err != nil {
		return err
	}

	cpuBackend, release := newBackend(a.gpu, logger)
	defer release()
	backend := autodiff.New(cpuBackend)

	model, opt, session, err := buildRun(cfg, backend, src, trg, o.resume, logger)
	if err != nil {
		return err
	}

	batches, err := corpusIterator(cfg, cfg.Data.Train, true, session.Epoch, srcTok, trgTok, src, trg, logger)
	if err != nil {
		return err
	}
	tcfg := train.Config{
		SrcPad:     int32(src.PadIndex()),
		TrgPad:     int32(trg.PadIndex()),
		PrintEvery: cfg.Train.PrintEvery,
		Train:      batches,
		Checkpoint: cfg.Data.Checkpoint,
	}
	if cfg.Data.Validation != "" && exists(cfg.Data.Validation) {
		val, err := corpusIterator(cfg, cfg.Data.Validation, false, 0, srcTok, trgTok, src, trg, logger)
		if err != nil {
			return err
		}
		tcfg.Validation = val
	}
	if err := ensureDir(cfg.Data.Checkpoint); err != nil {
		return err
	}

	trainer := train.New(model, opt, tcfg, train.WithLogger(logger))
	err = trainer.Run(ctx, session, cfg.Train.Epochs)
	if errors.Is(err, context.Canceled) {
		if saveErr := trainer.Save(session, cfg.Data.Checkpoint); saveErr != nil {
			return errors.Join(err, saveErr)
		}
		logger.Info("interrupted, checkpoint saved", "path", cfg.Data.Checkpoint, "step", session.Step)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "trained %d epochs (%d steps), final loss %.4f\n", session.Epoch, session.Step, session.LastLoss)
	return nil
}

// buildRun creates a fresh model and optimizer, or restores both from the checkpoint.
func buildRun(cfg config.Config, backend trainBackend, src, trg *vocab.Vocab, resume bool, logger *slog.Logger) (*nn.Transformer[trainBackend], optim.Optimizer, *train.Session, error) {
	seed := nn.WithSeed(cfg.Train.Seed)
	if resume && exists(cfg.Data.Checkpoint) {
		ckpt, err := nn.LoadCheckpoint(cfg.Data.Checkpoint, backend, seed)
		if err != nil {
			return nil, nil, nil, err
		}
		mc := ckpt.Model.Config()
		if mc.SrcVocab != src.Len() || mc.TrgVocab != trg.Len() {
			return nil, nil, nil, fmt.Errorf("%w: checkpoint vocabularies %d/%d, files %d/%d",
				nn.ErrConfigMismatch, mc.SrcVocab, mc.TrgVocab, src.Len(), trg.Len())
		}
		opt := newOptimizer(cfg.Train, ckpt.Model.Parameters())
		switch {
		case len(ckpt.OptimizerState) == 0:
		case ckpt.OptimizerType != opt.Name():
			logger.Warn("optimizer changed, starting with fresh state", "checkpoint", ckpt.OptimizerType, "optimizer", opt.Name())
		default:
			if err := opt.LoadStateDict(ckpt.OptimizerState); err != nil {
				return nil, nil, nil, fmt.Errorf("restore optimizer: %w", err)
			}
		}
		logger.Info("resuming", "run_id", ckpt.RunID, "epoch", ckpt.Epoch, "step", ckpt.Step)
		return ckpt.Model, opt, train.ResumeSession(ckpt.RunID, ckpt.Epoch, ckpt.Step, time.Now()), nil
	}

	model, err := nn.NewTransformer(cfg.Model.NN(src.Len(), trg.Len()), backend, seed)
	if err != nil {
		return nil, nil, nil, err
	}
	return model, newOptimizer(cfg.Train, model.Parameters()), train.NewSession(time.Now()), nil
}

func newOptimizer(tc config.TrainConfig, params []*nn.Parameter[trainBackend]) optim.Optimizer {
	if tc.Optimizer == config.OptimizerSGD {
		return optim.NewSGD(params, tc.SGD)
	}
	return optim.NewAdam(params, tc.Adam)
}

// corpusIterator batches the corpus at path. epoch is the number of completed epochs, so a
// resumed run continues the shuffle sequence instead of replaying it.
func corpusIterator(cfg config.Config, path string, shuffle bool, epoch int, srcTok, trgTok tokenizer.Tokenizer, src, trg *vocab.Vocab, logger *slog.Logger) (*data.BucketIterator, error) {
	examples, err := loadExamples(path, srcTok, trgTok, logger)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeCorpus(examples, src, trg, cfg.Model.MaxSeqLen, logger)
	if err != nil {
		return nil, err
	}
	if len(encoded) == 0 {
		return nil, fmt.Errorf("corpus %s has no usable examples", path)
	}
	it := data.NewBucketIterator(encoded, data.IteratorConfig{
		TokenBudget: cfg.Train.TokenBudget,
		PoolFactor:  cfg.Train.PoolFactor,
		Shuffle:     shuffle,
		Seed:        cfg.Train.Seed,
		Epoch:       epoch,
		SrcPad:      int32(src.PadIndex()),
		TrgPad:      int32(trg.PadIndex()),
	})
	return it, nil
}
