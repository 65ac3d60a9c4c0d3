package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pario-ai/scoregate/pkg/broker"
	"github.com/pario-ai/scoregate/pkg/extract"
	"github.com/pario-ai/scoregate/pkg/server"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scoring HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			cipher, err := openCipher(cfg)
			if err != nil {
				return fmt.Errorf("init cipher: %w", err)
			}
			auditor, err := openAudit(cfg, cipher)
			if err != nil {
				return err
			}
			defer func() { _ = auditor.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b, err := broker.FromConfig(ctx, cfg, auditor)
			if err != nil {
				return err
			}

			x := extract.New(cfg.Extract.MaxBytes, cfg.Extract.MinChars)
			srv := server.New(cfg, b, x, cipher)

			logrus.WithFields(logrus.Fields{
				"version":    version,
				"encryption": cipher != nil,
				"audit":      auditor != nil,
			}).Info("[SERVE] Starting scoregate")
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}
