package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func NewStatusCommand() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the health of a running gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(address)
		},
	}

	cmd.Flags().StringVar(&address, "address", "http://localhost:8090", "Gateway base URL")

	return cmd
}

func runStatus(address string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(address + "/health")
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	var health struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Version   string `json:"version"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("unexpected health response: %w", err)
	}

	fmt.Printf("Service:   %s\n", health.Service)
	fmt.Printf("Status:    %s\n", health.Status)
	fmt.Printf("Version:   %s\n", health.Version)
	fmt.Printf("Timestamp: %s\n", health.Timestamp)

	return nil
}
