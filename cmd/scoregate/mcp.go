package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/scoregate/pkg/broker"
	"github.com/pario-ai/scoregate/pkg/mcp"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start scoregate as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			cipher, err := openCipher(cfg)
			if err != nil {
				return err
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
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				_ = b.Close(closeCtx)
			}()

			return mcp.New(b, auditor, version).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
