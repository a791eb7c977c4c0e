package commands

import (
	"time"

	"github.com/dyluth/gather/internal/api"
	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/config"
	"github.com/dyluth/gather/internal/printer"
	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for a user",
	Long: `Sign an HS256 token with auth.jwt_secret whose subject is --user.
Meant for local testing of the API; production tokens come from the
identity provider sharing the same secret.

Examples:
  curl -H "Authorization: Bearer $(gather token --user alice)" localhost:8080/api/v1/me/events`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "Token subject (user id)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := requireUser(tokenUser); err != nil {
		return err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return printer.Error("failed to load environment file", err.Error(), nil)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}
	if err := cfg.RequireAuth(); err != nil {
		return printer.Error("API authentication is not configured", err.Error(), nil)
	}

	tok, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, clock.System{}).Issue(tokenUser, tokenTTL)
	if err != nil {
		return printer.Error("failed to sign token", err.Error(), nil)
	}
	printer.Info("%s\n", tok)
	return nil
}
