package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/google"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access and cache the OAuth token",
		Long: `Runs the Gmail OAuth consent flow. Prints a consent URL, reads the
authorization code from stdin, and caches the resulting token in the
data directory. Requires a Google OAuth client credentials file; set
GMAIL_CREDENTIALS_FILE or place credentials.json in the data directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context())
		},
	}
}

func runAuth(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	if google.HasToken(cfg.TokenPath()) {
		fmt.Println("A Gmail token already exists; continuing will replace it.")
	}

	conf, err := google.LoadConfig(cfg.CredentialsPath())
	if err != nil {
		return err
	}

	fmt.Printf("Visit this URL to authorize Gmail access:\n\n  %s\n\n", google.AuthURL(conf))
	fmt.Print("Paste the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code given")
	}

	if err := google.SaveToken(ctx, conf, code, cfg.TokenPath()); err != nil {
		return err
	}

	fmt.Printf("Token saved to %s\n", cfg.TokenPath())
	return nil
}
