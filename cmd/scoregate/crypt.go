package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/scoregate/pkg/secure"
)

func newEncryptCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [text]",
		Short: "Encrypt text (or stdin) with the configured key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.cipher()
			if err != nil {
				return err
			}
			text, err := inputText(args)
			if err != nil {
				return err
			}
			out, err := c.Encrypt(text)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func newDecryptCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [ivHex:cipherHex]",
		Short: "Decrypt a payload (or stdin) with the configured key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.cipher()
			if err != nil {
				return err
			}
			payload, err := inputText(args)
			if err != nil {
				return err
			}
			out, err := c.Decrypt(strings.TrimSpace(payload))
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func (f *globalFlags) cipher() (*secure.Cipher, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return secure.New(cfg.EncryptionKey)
}

func inputText(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
