package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/born-ml/javi/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, checkpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation web page and API",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a, addr, checkpoint)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "model checkpoint (overrides data.checkpoint)")
	return cmd
}

func runServe(ctx context.Context, a *app, addr, checkpoint string) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if checkpoint != "" {
		cfg.Data.Checkpoint = checkpoint
	}

	backend, release := newBackend(a.gpu, logger)
	defer release()
	tr, _, err := loadTranslator(cfg, backend)
	if err != nil {
		return err
	}

	srv := server.New(tr, logger, server.Options{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
