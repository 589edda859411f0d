package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/javi/internal/translate"
)

type translateOptions struct {
	checkpoint string
	maxLen     int
	verbose    bool
}

func newTranslateCmd(a *app) *cobra.Command {
	var o translateOptions
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate the arguments, or stdin line by line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), a, o, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.checkpoint, "checkpoint", "", "model checkpoint (overrides data.checkpoint)")
	f.IntVar(&o.maxLen, "max-len", 0, "maximum output length including <sos> (overrides decode.max_len)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "print source tokens and stop reason")
	return cmd
}

func runTranslate(ctx context.Context, a *app, o translateOptions, args []string) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	if o.checkpoint != "" {
		cfg.Data.Checkpoint = o.checkpoint
	}
	if o.maxLen > 0 {
		cfg.Decode.MaxLen = o.maxLen
	}

	backend, release := newBackend(a.gpu, logger)
	defer release()
	tr, _, err := loadTranslator(cfg, backend)
	if err != nil {
		return err
	}

	emit := func(sentence string) error {
		res, err := tr.TranslateDetailed(sentence)
		if err != nil {
			return err
		}
		printResult(a.stdout, res, o.verbose)
		return nil
	}

	if len(args) > 0 {
		return emit(strings.Join(args, " "))
	}

	sc := bufio.NewScanner(a.stdin)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

func printResult(w io.Writer, res translate.Result, verbose bool) {
	if verbose {
		fmt.Fprintf(w, "# source: %s\n# stop: %s, log-prob %.3f", strings.Join(res.SourceTokens, " "), res.Reason, res.LogProb)
		if res.SourceTruncated {
			fmt.Fprint(w, ", source truncated")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, res.Text)
}
