package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var server, key string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for CLI access",
		Long: `Store an API key and server URL in ~/.config/fsched/config.yaml.

Create a key on the server host with "fsched apikey create <name>". Without
--key the key is read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				fmt.Print("Paste your API key: ")
				var err error
				if key, err = readKey(os.Stdin); err != nil {
					return err
				}
			}
			return runLogin(server, key)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or http://localhost:8080)")
	cmd.Flags().StringVar(&key, "key", "", "API key (default: read from stdin)")

	return cmd
}

func readKey(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runLogin(serverFlag, key string) error {
	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	if serverFlag != "" {
		cfg.ServerURL = strings.TrimRight(serverFlag, "/")
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("✓ API key saved. You're logged in!")
	return nil
}

// validateAPIKey checks that the key is non-empty and has the expected prefix.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if !strings.HasPrefix(key, "fs_") {
		return fmt.Errorf("invalid API key format (should start with fs_)")
	}
	return nil
}
