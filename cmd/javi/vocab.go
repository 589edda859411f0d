package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/javi/internal/data"
	"github.com/born-ml/javi/internal/vocab"
)

func newVocabCmd(a *app) *cobra.Command {
	var trainPath string
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Build source and target vocabularies",
		Args:  noArgs,
		RunE: func(*cobra.Command, []string) error {
			return runVocab(a, trainPath)
		},
	}
	cmd.Flags().StringVar(&trainPath, "train", "", "training corpus (overrides data.train)")
	return cmd
}

func runVocab(a *app, trainPath string) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	if trainPath != "" {
		cfg.Data.Train = trainPath
	}

	srcTok, trgTok, err := tokenizers(cfg)
	if err != nil {
		return err
	}
	examples, err := loadExamples(cfg.Data.Train, srcTok, trgTok, logger)
	if err != nil {
		return err
	}

	src, err := vocab.Build(data.SourceSentences(examples), vocab.Options{
		Specials: vocab.SourceSpecials,
		MinFreq:  cfg.Train.MinFreq,
	})
	if err != nil {
		return err
	}
	trg, err := vocab.Build(data.TargetSentences(examples), vocab.Options{
		Specials: vocab.TargetSpecials,
		MinFreq:  cfg.Train.MinFreq,
	})
	if err != nil {
		return err
	}

	for _, out := range []struct {
		v    *vocab.Vocab
		path string
	}{{src, cfg.Data.SrcVocab}, {trg, cfg.Data.TrgVocab}} {
		if err := ensureDir(out.path); err != nil {
			return err
		}
		if err := out.v.Save(out.path); err != nil {
			return err
		}
	}
	logger.Info("vocabularies written",
		"src_tokens", src.Len(), "src_path", cfg.Data.SrcVocab,
		"trg_tokens", trg.Len(), "trg_path", cfg.Data.TrgVocab)
	fmt.Fprintf(a.stdout, "source vocabulary: %d tokens\ntarget vocabulary: %d tokens\n", src.Len(), trg.Len())
	return nil
}
