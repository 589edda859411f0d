// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package javi is the public API for embedding the Japanese to Vietnamese translator.
//
// A trained model consists of a checkpoint and two vocabulary files, all named by the
// configuration. Open loads them together with the tokenizers:
//
//	cfg, err := javi.LoadConfig("javi.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tr, err := javi.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := tr.Translate("私は学生です")
package javi

import (
	"fmt"

	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/config"
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/tokenizer"
	"github.com/born-ml/javi/internal/translate"
	"github.com/born-ml/javi/internal/vocab"
)

// Config is the complete configuration (model, training, decoding, data, server).
type Config = config.Config

// Translator translates Japanese sentences into Vietnamese on the CPU backend.
type Translator = translate.Translator[*cpu.CPUBackend]

// Result is a translation with its tokens and stop reason.
type Result = translate.Result

// Backend is the compute backend translators run on.
type Backend = cpu.CPUBackend

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a YAML configuration over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Option customizes Open.
type Option func(*options)

type options struct {
	backend *cpu.CPUBackend
}

// WithBackend runs the model on b, e.g. a backend with a GPU accelerator attached.
func WithBackend(b *Backend) Option {
	return func(o *options) { o.backend = b }
}

// Open loads the checkpoint and vocabularies named by cfg.Data and returns a translator
// that decodes up to cfg.Decode.MaxLen tokens.
func Open(cfg Config, opts ...Option) (*Translator, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = cpu.New()
	}

	tok, err := tokenizer.New(cfg.Data.SrcLang)
	if err != nil {
		return nil, err
	}
	src, err := vocab.Load(cfg.Data.SrcVocab)
	if err != nil {
		return nil, err
	}
	trg, err := vocab.Load(cfg.Data.TrgVocab)
	if err != nil {
		return nil, err
	}
	model, err := nn.LoadTransformer(cfg.Data.Checkpoint, o.backend)
	if err != nil {
		return nil, fmt.Errorf("javi: load model: %w", err)
	}
	return translate.New[*cpu.CPUBackend](model, tok, src, trg, cfg.Decode.MaxLen)
}
