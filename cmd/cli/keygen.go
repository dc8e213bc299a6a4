package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func NewKeygenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the gateway's signing secrets",
		Long:  `Generate a preview-token signing secret and an operator JWT secret, printed as environment variable assignments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen()
		},
	}

	return cmd
}

func runKeygen() error {
	previewSecret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate preview token secret: %w", err)
	}

	operatorSecret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate operator JWT secret: %w", err)
	}

	fmt.Printf("PREVIEW_TOKEN_SECRET=%s\n", previewSecret)
	fmt.Printf("OPERATOR_JWT_SECRET=%s\n", operatorSecret)

	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
