package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-scheduler/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored API key is valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	serverURL := getServerURL()
	apiKey := getAPIKey()

	fmt.Printf("Server:  %s\n", serverURL)

	c := client.New(serverURL, apiKey)
	if err := c.Health(); err != nil {
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	if apiKey == "" {
		fmt.Println("API Key: not configured")
		fmt.Println("\nRun 'fsched login' to authenticate.")
		return nil
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Printf("API Key: %s…\n", prefix)

	// Any authenticated endpoint will do
	_, err := c.Stats("", "")
	var apiErr *client.APIError
	switch {
	case err == nil:
		fmt.Println("Status:  ✓ connected and authenticated")
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		fmt.Println("Status:  ✗ invalid API key")
		fmt.Println("\nRun 'fsched login' to re-authenticate.")
	case errors.As(err, &apiErr):
		fmt.Printf("Status:  ✗ unexpected response (%d)\n", apiErr.Status)
	default:
		fmt.Printf("Status:  ✗ %v\n", err)
	}

	return nil
}
