package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

var tokenFlags struct {
	subject string
	mode    string
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token",
	Long: `Mint a signed bearer token, valid for 8 hours, with the configured
JWT_SECRET_KEY. The token is printed to stdout.

Examples:
  # Production token for alice
  gateway token --sub alice

  # Call the gateway with it
  curl -H "Authorization: Bearer $(gateway token --sub alice)" ...`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenFlags.subject, "sub", "", "caller identity (required)")
	tokenCmd.Flags().StringVar(&tokenFlags.mode, "mode", string(domain.ModeProduction), "mode claim (development, production)")
	_ = tokenCmd.MarkFlagRequired("sub")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, ok := domain.ParseMode(tokenFlags.mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", tokenFlags.mode)
	}
	if tokenFlags.subject == "" {
		return fmt.Errorf("--sub must not be empty")
	}

	token, claims, err := auth.NewSigner(cfg.JWTSecret).Issue(tokenFlags.subject, mode, time.Now())
	if err != nil {
		return err
	}
	if cfg.InsecureSecret() {
		cmd.PrintErrln("warning: signed with the built-in placeholder secret")
	}
	cmd.PrintErrf("expires %s\n", claims.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
