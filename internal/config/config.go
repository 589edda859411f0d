// Package config loads the YAML configuration shared by every javi subcommand.
//
// A file only needs the keys it changes; everything else keeps the value from Default.
//
//	model:
//	  d_model: 256
//	  layers: 3
//	train:
//	  epochs: 20
//	data:
//	  train: data/train.csv
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/optim"
)

// Config is the complete configuration.
type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Train  TrainConfig  `yaml:"train"`
	Decode DecodeConfig `yaml:"decode"`
	Data   DataConfig   `yaml:"data"`
	Server ServerConfig `yaml:"server"`
}

// ModelConfig is the architecture. Vocabulary sizes come from the vocabulary files.
type ModelConfig struct {
	DModel    int     `yaml:"d_model"`
	Heads     int     `yaml:"heads"`
	Layers    int     `yaml:"layers"`
	DFF       int     `yaml:"d_ff"`
	Dropout   float64 `yaml:"dropout"`
	Eps       float32 `yaml:"eps"`
	MaxSeqLen int     `yaml:"max_seq_len"`
}

// Optimizers accepted by train.optimizer.
const (
	OptimizerAdam = "adam"
	OptimizerSGD  = "sgd"
)

// TrainConfig controls batching and optimization.
// Only the section named by Optimizer is used.
type TrainConfig struct {
	Epochs      int              `yaml:"epochs"`
	TokenBudget int              `yaml:"token_budget"`
	PoolFactor  int              `yaml:"pool_factor"`
	Optimizer   string           `yaml:"optimizer"`
	Adam        optim.AdamConfig `yaml:"adam"`
	SGD         optim.SGDConfig  `yaml:"sgd"`
	PrintEvery  int              `yaml:"print_every"`
	Seed        uint64           `yaml:"seed"`
	MinFreq     int              `yaml:"min_freq"`
}

// DecodeConfig controls greedy decoding.
type DecodeConfig struct {
	MaxLen int `yaml:"max_len"`
}

// DataConfig holds file locations and the tokenizer of each language.
type DataConfig struct {
	SrcLang    string `yaml:"src_lang"`
	TrgLang    string `yaml:"trg_lang"`
	Train      string `yaml:"train"`
	Validation string `yaml:"validation"`
	Test       string `yaml:"test"`
	SrcVocab   string `yaml:"src_vocab"`
	TrgVocab   string `yaml:"trg_vocab"`
	Checkpoint string `yaml:"checkpoint"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the reference configuration.
func Default() Config {
	arch := nn.DefaultConfig(0, 0)
	return Config{
		Model: ModelConfig{
			DModel:    arch.DModel,
			Heads:     arch.Heads,
			Layers:    arch.Layers,
			DFF:       arch.DFF,
			Dropout:   arch.Dropout,
			Eps:       arch.Eps,
			MaxSeqLen: arch.MaxSeqLen,
		},
		Train: TrainConfig{
			Epochs:      100,
			TokenBudget: 1300,
			PoolFactor:  100,
			Optimizer:   OptimizerAdam,
			Adam:        optim.DefaultAdamConfig(),
			SGD:         optim.SGDConfig{LR: 0.01},
			PrintEvery:  50,
			Seed:        1,
			MinFreq:     1,
		},
		Decode: DecodeConfig{MaxLen: 80},
		Data: DataConfig{
			SrcLang:    "ja",
			TrgLang:    "vi",
			Train:      "data/train.csv",
			Validation: "data/val.csv",
			Test:       "data/test.csv",
			SrcVocab:   "model/src_vocab.json",
			TrgVocab:   "model/trg_vocab.json",
			Checkpoint: "model/javi.ckpt",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// NN returns the model configuration for the given vocabulary sizes.
func (m ModelConfig) NN(srcVocab, trgVocab int) nn.Config {
	return nn.Config{
		SrcVocab:  srcVocab,
		TrgVocab:  trgVocab,
		DModel:    m.DModel,
		Heads:     m.Heads,
		Layers:    m.Layers,
		DFF:       m.DFF,
		Dropout:   m.Dropout,
		Eps:       m.Eps,
		MaxSeqLen: m.MaxSeqLen,
	}
}

// Load reads a YAML file over Default and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	//nolint:gosec // Config path is user-specified by design.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys are errors.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range value at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	m := c.Model
	check(m.DModel > 0, "model.d_model must be positive, got %d", m.DModel)
	check(m.Heads > 0, "model.heads must be positive, got %d", m.Heads)
	check(m.Heads <= 0 || m.DModel%m.Heads == 0, "model.d_model %d is not divisible by model.heads %d", m.DModel, m.Heads)
	check(m.Layers > 0, "model.layers must be positive, got %d", m.Layers)
	check(m.DFF > 0, "model.d_ff must be positive, got %d", m.DFF)
	check(m.Dropout >= 0 && m.Dropout < 1, "model.dropout must be in [0, 1), got %g", m.Dropout)
	check(m.Eps > 0, "model.eps must be positive, got %g", m.Eps)
	check(m.MaxSeqLen > 0, "model.max_seq_len must be positive, got %d", m.MaxSeqLen)

	t := c.Train
	check(t.Epochs > 0, "train.epochs must be positive, got %d", t.Epochs)
	check(t.TokenBudget > 0, "train.token_budget must be positive, got %d", t.TokenBudget)
	check(t.PoolFactor > 0, "train.pool_factor must be positive, got %d", t.PoolFactor)
	check(t.Optimizer == OptimizerAdam || t.Optimizer == OptimizerSGD,
		"train.optimizer must be %q or %q, got %q", OptimizerAdam, OptimizerSGD, t.Optimizer)
	check(t.SGD.LR > 0, "train.sgd.lr must be positive, got %g", t.SGD.LR)
	check(t.SGD.Momentum >= 0 && t.SGD.Momentum < 1, "train.sgd.momentum must be in [0, 1), got %g", t.SGD.Momentum)
	check(t.Adam.LR > 0, "train.adam.lr must be positive, got %g", t.Adam.LR)
	check(t.Adam.Betas[0] >= 0 && t.Adam.Betas[0] < 1, "train.adam.betas[0] must be in [0, 1), got %g", t.Adam.Betas[0])
	check(t.Adam.Betas[1] >= 0 && t.Adam.Betas[1] < 1, "train.adam.betas[1] must be in [0, 1), got %g", t.Adam.Betas[1])
	check(t.Adam.Eps > 0, "train.adam.eps must be positive, got %g", t.Adam.Eps)
	check(t.PrintEvery > 0, "train.print_every must be positive, got %d", t.PrintEvery)
	check(t.MinFreq > 0, "train.min_freq must be positive, got %d", t.MinFreq)

	check(c.Decode.MaxLen >= 2 && c.Decode.MaxLen <= m.MaxSeqLen+1,
		"decode.max_len must be in [2, %d], got %d", m.MaxSeqLen+1, c.Decode.MaxLen)
	check(c.Data.SrcLang != "", "data.src_lang must not be empty")
	check(c.Data.TrgLang != "", "data.trg_lang must not be empty")
	check(c.Data.Checkpoint != "", "data.checkpoint must not be empty")
	check(c.Server.Addr != "", "server.addr must not be empty")
	check(c.Server.ShutdownTimeout >= 0, "server.shutdown_timeout must not be negative")

	return errors.Join(errs...)
}
