package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonolens/api/internal/auth"
	"github.com/sonolens/api/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		email  string
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an HMAC token for a local API",
		Long: `Sign a legacy HMAC token for the given user with the configured
JWT_SECRET (or --secret) and print it.

Examples:
  moodmap token dev-user
  moodmap token dev-user --ttl 1h --secret local-secret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl < 0 {
				return fmt.Errorf("--ttl must not be negative, got %s", ttl)
			}
			if secret == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				secret = cfg.JWT.Secret
				if !cmd.Flags().Changed("ttl") {
					ttl = time.Duration(cfg.JWT.Expiration) * time.Hour
				}
			}

			token, err := auth.GenerateLegacyToken(args[0], email, secret, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (default: jwt.secret from config)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}
