package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored API key",
		Long:  "Removes the stored API key from ~/.config/fsched/config.yaml. The server URL and default technician are kept unless --all is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "also forget the server URL and default technician")
	return cmd
}

func runLogout(all bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.APIKey == "" && !all {
		fmt.Println("Not logged in.")
		return nil
	}

	if all {
		cfg = CLIConfig{}
	} else {
		cfg.APIKey = ""
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("✓ Logged out. API key removed.")
	return nil
}
