package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/forgelink/forgelink/internal/auth"

	"github.com/spf13/cobra"
)

func NewTokenCommand() *cobra.Command {
	var (
		tenantID string
		operator bool
		subject  string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a preview or operator token",
		Long: `Mint a preview token for a tenant's sandbox (default), or an operator JWT
with --operator. Secrets are read from the environment, matching the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if operator {
				return runOperatorToken(subject)
			}
			return runPreviewToken(tenantID)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id to mint a preview token for")
	cmd.Flags().BoolVar(&operator, "operator", false, "Mint an operator JWT instead of a preview token")
	cmd.Flags().StringVar(&subject, "subject", "operator", "Subject claim for the operator JWT")

	return cmd
}

func runPreviewToken(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("--tenant is required")
	}

	codec, err := auth.NewPreviewTokenCodec(os.Getenv("PREVIEW_TOKEN_SECRET"))
	if err != nil {
		return err
	}

	token, err := codec.Issue(tenantID, time.Now())
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func runOperatorToken(subject string) error {
	tokens, err := auth.NewOperatorTokenService(os.Getenv("OPERATOR_JWT_SECRET"))
	if err != nil {
		return err
	}

	token, err := tokens.Issue(subject, 12*time.Hour)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
