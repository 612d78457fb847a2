package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fitlink/chat-broker/internal/config"
	"github.com/fitlink/chat-broker/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	var (
		userID   uint64
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTL
			}

			m, err := jwt.NewManager([]byte(cfg.Auth.Secret), cfg.Auth.Issuer, ttl)
			if err != nil {
				return err
			}
			token, exp, err := m.GenerateToken(userID, username)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&userID, "user", 0, "user id carried by the token")
	cmd.Flags().StringVar(&username, "username", "", "username claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.access_token_ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
