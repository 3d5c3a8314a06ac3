package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/casesync/internal/shiphero"
)

type refreshOutput struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresIn    int        `json:"expiresIn"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

func newRefreshCmd(g *globalOptions) *cobra.Command {
	var refreshToken string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refreshToken == "" {
				refreshToken = g.cfg.ShipHero.RefreshToken
			}
			client := shiphero.NewClient(
				shiphero.WithAuthURL(g.cfg.ShipHero.AuthURL),
				shiphero.WithTimeout(g.cfg.ShipHero.Timeout),
			)

			tok, err := client.RefreshToken(cmd.Context(), refreshToken)
			if err != nil {
				return err
			}

			out := refreshOutput{
				AccessToken:  tok.AccessToken,
				RefreshToken: tok.RefreshToken,
				ExpiresIn:    tok.ExpiresIn,
			}
			if exp := tok.ExpiresAt(); !exp.IsZero() {
				out.ExpiresAt = &exp
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "ShipHero refresh token (default $SHIPHERO_REFRESH_TOKEN)")
	return cmd
}
