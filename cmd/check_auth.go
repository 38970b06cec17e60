package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/google"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

func newCheckAuthCmd() *cobra.Command {
	var (
		service string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "check-auth",
		Short: "Verify the configured OAuth credentials",
		Long: `Exchange the configured refresh token for an access token once and print
the outcome as a tool result envelope. Exits non-zero when the refresh fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := cfg.Validate(service); err != nil {
				return err
			}

			refresher := google.NewOAuth2Refresher(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken(service), google.ScopesForService(service))
			tokens := google.NewTokenCache(service, refresher,
				google.WithExpirySkew(cfg.TokenExpirySkew),
				google.WithLogger(newLogger(cfg, debug)),
			)
			return runCheckAuth(cmd.Context(), cmd.OutOrStdout(), tokens)
		},
	}

	cmd.Flags().StringVar(&service, "service", config.ServiceGmail, "Backend whose credentials to check: gmail or calendar")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

// runCheckAuth forces a refresh on tokens and writes the envelope to out.
func runCheckAuth(ctx context.Context, out io.Writer, tokens *google.TokenCache) error {
	if ctx == nil {
		ctx = context.Background()
	}

	refreshErr := tokens.Refresh(ctx)
	res := envelope.Response(fmt.Sprintf("Authenticated with %s, access token valid until %s",
		tokens.Service(), tokens.ExpiresAt().UTC().Format(time.RFC3339)))
	if refreshErr != nil {
		res = envelope.FromError(refreshErr)
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if _, err := fmt.Fprintln(out, string(b)); err != nil {
		return err
	}

	if refreshErr != nil {
		return fmt.Errorf("authentication check failed")
	}
	return nil
}
