package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/born-ml/javi"
	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/backend/webgpu"
	"github.com/born-ml/javi/internal/config"
	"github.com/born-ml/javi/internal/data"
	"github.com/born-ml/javi/internal/tokenizer"
	"github.com/born-ml/javi/internal/vocab"
)

// acceleratorMinWork is the smallest product (multiply-adds) sent to the GPU.
const acceleratorMinWork = 1 << 18

// app carries the process environment and the persistent flags shared by every subcommand.
type app struct {
	env
	configPath string
	logLevel   string
	gpu        bool
}

// setup loads the configuration and builds the logger.
func (a *app) setup() (config.Config, *slog.Logger, error) {
	logger, err := newLogger(a.stderr, a.logLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, usageError{fmt.Errorf("invalid --log-level %q: %w", level, err)}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// newBackend returns the CPU backend, with the WebGPU accelerator attached when asked
// for and available. The returned release function must be called when done.
func newBackend(useGPU bool, logger *slog.Logger) (*cpu.CPUBackend, func()) {
	if !useGPU {
		return cpu.New(), func() {}
	}
	acc, err := webgpu.NewAccelerator()
	if err != nil {
		logger.Warn("gpu unavailable, using cpu", "err", err)
		return cpu.New(), func() {}
	}
	b := cpu.New(cpu.WithAccelerator(acc, acceleratorMinWork))
	logger.Info("gpu accelerator attached", "backend", b.Name())
	return b, acc.Release
}

func tokenizers(cfg config.Config) (src, trg tokenizer.Tokenizer, err error) {
	if src, err = tokenizer.New(cfg.Data.SrcLang); err != nil {
		return nil, nil, err
	}
	if trg, err = tokenizer.New(cfg.Data.TrgLang); err != nil {
		return nil, nil, err
	}
	return src, trg, nil
}

func loadVocabs(cfg config.Config) (src, trg *vocab.Vocab, err error) {
	if src, err = vocab.Load(cfg.Data.SrcVocab); err != nil {
		return nil, nil, withHint(err)
	}
	if trg, err = vocab.Load(cfg.Data.TrgVocab); err != nil {
		return nil, nil, withHint(err)
	}
	return src, trg, nil
}

// withHint points at the command that creates a missing file.
func withHint(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w (run 'javi vocab' and 'javi train' first)", err)
	}
	return err
}

// loadExamples reads a corpus and tokenizes it.
func loadExamples(path string, srcTok, trgTok tokenizer.Tokenizer, logger *slog.Logger) ([]data.Example, error) {
	pairs, stats, err := data.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus loaded", "path", path, "rows", stats.Rows, "pairs", len(pairs), "skipped", stats.Skipped)
	return data.Tokenize(pairs, srcTok, trgTok), nil
}

// encodeCorpus numericalizes a corpus and drops examples longer than the model accepts.
func encodeCorpus(examples []data.Example, src, trg *vocab.Vocab, maxSeqLen int, logger *slog.Logger) ([]data.Encoded, error) {
	encoded, err := data.Numericalize(examples, src, trg)
	if err != nil {
		return nil, err
	}
	kept, dropped := data.FilterLength(encoded, maxSeqLen)
	if dropped > 0 {
		logger.Info("examples filtered by length", "dropped", dropped, "kept", len(kept), "max_seq_len", maxSeqLen)
	}
	return kept, nil
}

// loadTranslator opens the trained model and returns it with the target tokenizer.
func loadTranslator(cfg config.Config, backend *cpu.CPUBackend) (*javi.Translator, tokenizer.Tokenizer, error) {
	trgTok, err := tokenizer.New(cfg.Data.TrgLang)
	if err != nil {
		return nil, nil, err
	}
	tr, err := javi.Open(cfg, javi.WithBackend(backend))
	if err != nil {
		return nil, nil, withHint(err)
	}
	return tr, trgTok, nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o750)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
