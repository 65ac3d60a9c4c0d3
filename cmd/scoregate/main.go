package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pario-ai/scoregate/pkg/audit"
	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/secure"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

func main() {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "scoregate",
		Short:        "Scoregate, a resilient document scoring broker",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(flags.envFile); err != nil {
				return err
			}
			if flags.logLevel != "" {
				return setLogLevel(flags.logLevel)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (defaults plus environment when empty)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		newServeCmd(flags),
		newScoreCmd(flags),
		newOptimizeCmd(flags),
		newStatusCmd(),
		newMCPCmd(flags),
		newEncryptCmd(flags),
		newDecryptCmd(flags),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// loadConfig reads the config and applies its log level unless the flag set one.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.logLevel == "" && cfg.LogLevel != "" {
		if err := setLogLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openCipher returns nil when no encryption key is configured.
func openCipher(cfg *config.Config) (*secure.Cipher, error) {
	if cfg.EncryptionKey == "" {
		return nil, nil
	}
	return secure.New(cfg.EncryptionKey)
}

// openAudit returns nil when auditing is disabled.
func openAudit(cfg *config.Config, c *secure.Cipher) (*audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	var opts []audit.Option
	if c != nil {
		opts = append(opts, audit.WithSealer(c))
	} else if cfg.Audit.StoreInputs {
		logrus.Warn("[AUDIT] store_inputs set without an encryption key, inputs will not be stored")
	}
	l, err := audit.New(cfg.Audit, opts...)
	if err != nil {
		return nil, fmt.Errorf("init audit: %w", err)
	}
	return l, nil
}
