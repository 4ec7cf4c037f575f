package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"go-cvlibrary-scraper/internal/config"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd, credentialsDeleteCmd)
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Stores or removes the portal password in the OS keychain.",
}

// The password is read from stdin so it never appears in shell history.
var credentialsSetCmd = &cobra.Command{
	Use:   "set [username]",
	Short: "Reads a password from stdin and stores it for username (default CV_LIBRARY_USERNAME).",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := accountName(args)
		if username == "" {
			return config.ErrMissingCredentials
		}

		fmt.Fprintf(os.Stderr, "Password for %s: ", username)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return errors.New("empty password")
		}

		if err := config.SetPassword(username, password); err != nil {
			return err
		}
		fmt.Printf("🔐 password stored in the keychain for %s\n", username)
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete [username]",
	Short: "Removes the stored password for username.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := accountName(args)
		if username == "" {
			return config.ErrMissingCredentials
		}
		if err := config.DeletePassword(username); err != nil {
			return err
		}
		fmt.Printf("🗑️ password removed for %s\n", username)
		return nil
	},
}

func accountName(args []string) string {
	if len(args) == 1 {
		return strings.TrimSpace(args[0])
	}
	return strings.TrimSpace(cfg.Username)
}
