package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/scoregate/pkg/broker"
)

func newOptimizeCmd(flags *globalFlags) *cobra.Command {
	var (
		candidatePath   string
		requirementPath string
		keywords        []string
		localOnly       bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Rewrite a candidate document to cover the requirement's keywords",
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

			res, err := b.Optimize(ctx, candidate, requirement, keywords)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&candidatePath, "candidate", "", "candidate document (.txt, .md, .html, .docx)")
	cmd.Flags().StringVar(&requirementPath, "requirement", "", "requirement document (.txt, .md, .html, .docx)")
	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "keywords to work in (default: the local keyword gap)")
	cmd.Flags().BoolVar(&localOnly, "local", false, "skip remote tiers and return the document unchanged")
	_ = cmd.MarkFlagRequired("candidate")
	_ = cmd.MarkFlagRequired("requirement")
	return cmd
}
