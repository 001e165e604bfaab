package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/credentials"
)

func NewAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the diff backend credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a backend token is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd)
		},
	}

	var setKey string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the bearer token for the HTTP diff backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			key := strings.TrimSpace(setKey)
			if key == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Enter token for %s: ", cfg.Diff.Credential)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("read token: %w", err)
				}
				key = strings.TrimSpace(line)
			}
			if key == "" {
				return errors.New("token cannot be empty")
			}
			if err := storeCredential(cfg.Diff.Credential, key); err != nil {
				return fmt.Errorf("store token for %s: %w", cfg.Diff.Credential, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored token for %s\n", cfg.Diff.Credential)
			return nil
		},
	}
	setCmd.Flags().StringVar(&setKey, "key", "", "Token value")

	removeCmd := &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove the stored backend token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := removeCredential(cfg.Diff.Credential); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed token for %s\n", cfg.Diff.Credential)
			return nil
		},
	}

	authCmd.AddCommand(statusCmd, setCmd, removeCmd)
	return authCmd
}

func runAuthStatus(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name := cfg.Diff.Credential
	_, source, err := loadCredential(name)
	switch {
	case errors.Is(err, credentials.ErrCredentialNotFound):
		fmt.Fprintf(cmd.OutOrStdout(), "%s: not set\n", name)
	case err != nil:
		return fmt.Errorf("read credential %s: %w", name, err)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: stored (%s)\n", name, source)
	}
	if !strings.EqualFold(cfg.Diff.Renderer, "http") {
		fmt.Fprintf(cmd.OutOrStdout(), "note: diff renderer is %q, the token is only used by the http renderer\n", cfg.Diff.Renderer)
	}
	return nil
}
