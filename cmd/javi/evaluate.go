package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/javi/internal/bleu"
	"github.com/born-ml/javi/internal/data"
	"github.com/born-ml/javi/internal/parallel"
)

type evaluateOptions struct {
	test       string
	checkpoint string
	limit      int
}

func newEvaluateCmd(a *app) *cobra.Command {
	var o evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Report BLEU on the test corpus",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd.Context(), a, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.test, "test", "", "test corpus (overrides data.test)")
	f.StringVar(&o.checkpoint, "checkpoint", "", "model checkpoint (overrides data.checkpoint)")
	f.IntVar(&o.limit, "limit", 0, "evaluate at most this many pairs (0 for all)")
	return cmd
}

func runEvaluate(ctx context.Context, a *app, o evaluateOptions) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	if o.test != "" {
		cfg.Data.Test = o.test
	}
	if o.checkpoint != "" {
		cfg.Data.Checkpoint = o.checkpoint
	}

	backend, release := newBackend(a.gpu, logger)
	defer release()
	tr, trgTok, err := loadTranslator(cfg, backend)
	if err != nil {
		return err
	}

	pairs, stats, err := data.LoadCSV(cfg.Data.Test)
	if err != nil {
		return err
	}
	if o.limit > 0 && len(pairs) > o.limit {
		pairs = pairs[:o.limit]
	}
	logger.Info("evaluating", "path", cfg.Data.Test, "pairs", len(pairs), "skipped", stats.Skipped)
	if len(pairs) == 0 {
		return fmt.Errorf("test corpus %s has no usable pairs", cfg.Data.Test)
	}

	refs := make([][][]string, len(pairs))
	hyps := make([][]string, len(pairs))
	errs := make([]error, len(pairs))
	parallel.For(len(pairs), parallel.DefaultConfig(), func(i int) {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			return
		}
		res, err := tr.TranslateDetailed(pairs[i].Source)
		refs[i] = [][]string{trgTok.Tokenize(pairs[i].Target)}
		hyps[i], errs[i] = res.Tokens, err
	})

	var sentenceSum float64
	for i := range pairs {
		if errs[i] != nil {
			return errs[i]
		}
		sentenceSum += bleu.Sentence(refs[i], hyps[i])
	}
	corpus, err := bleu.Corpus(refs, hyps)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "pairs: %d\ncorpus BLEU: %.4f\nmean sentence BLEU: %.4f\n",
		len(pairs), corpus, sentenceSum/float64(len(pairs)))
	return nil
}
