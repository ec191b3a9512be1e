package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/config"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/tools"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Calendar and Gmail",
		Long:  "Runs the Google OAuth consent flow and saves the token for the calendar and email tools.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			credentials := cfg.Google.CredentialsPath
			if credentials == "" {
				credentials = paths.Credentials
			}
			tokenPath := cfg.Google.TokenPath
			if tokenPath == "" {
				tokenPath = paths.Token
			}

			oauthCfg, err := tools.LoadOAuthConfig(credentials)
			if err != nil {
				return err
			}

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Fprintf(cmd.OutOrStdout(),
				"Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

			var authCode string
			if _, err := fmt.Fscan(cmd.InOrStdin(), &authCode); err != nil {
				return fmt.Errorf("unable to read authorization code: %w", err)
			}

			tok, err := oauthCfg.Exchange(cmd.Context(), authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			if err := tools.SaveToken(tokenPath, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", tokenPath)
			return nil
		},
	}
}
