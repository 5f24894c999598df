package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storyframe-backend/pkg/auth"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
)

func newTokenCommand() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var jwtCfg config.JWTConfig
			if err := envconfig.Process(config.EnvPrefix, &jwtCfg); err != nil {
				return fmt.Errorf("jwt config: %w", err)
			}

			userID := uuid.New()
			if userFlag != "" {
				parsed, err := uuid.Parse(userFlag)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				userID = parsed
			}

			token, err := auth.MintAccessToken(jwtCfg, time.Now(), auth.AccessTokenPayload{UserID: userID})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"User", "Expires"}, [][]string{{
				userID.String(),
				time.Now().Add(time.Duration(jwtCfg.ExpirationMinutes) * time.Minute).UTC().Format(time.RFC3339),
			}}))
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User id to embed (random when empty)")
	return cmd
}
