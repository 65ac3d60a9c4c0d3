package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/scoregate/pkg/broker"
	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/extract"
)

func newScoreCmd(flags *globalFlags) *cobra.Command {
	var (
		candidatePath   string
		requirementPath string
		localOnly       bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a candidate document against a requirement document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if localOnly {
				cfg.Providers = nil
			}

			candidate, err := readDocument(cfg, candidatePath, cfg.Extract.MinChars)
			if err != nil {
				return err
			}
			requirement, err := readDocument(cfg, requirementPath, broker.MinRequirementChars)
			if err != nil {
				return err
			}

			ctx := context.Background()
			b, err := broker.FromConfig(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				_ = b.Close(closeCtx)
			}()

			resp, err := b.Submit(ctx, candidate, requirement)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&candidatePath, "candidate", "", "candidate document (.txt, .md, .html, .docx)")
	cmd.Flags().StringVar(&requirementPath, "requirement", "", "requirement document (.txt, .md, .html, .docx)")
	cmd.Flags().BoolVar(&localOnly, "local", false, "skip remote tiers and use the keyword scorer")
	_ = cmd.MarkFlagRequired("candidate")
	_ = cmd.MarkFlagRequired("requirement")
	return cmd
}

func readDocument(cfg *config.Config, path string, minChars int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return extract.New(cfg.Extract.MaxBytes, minChars).Extract(filepath.Base(path), data)
}
