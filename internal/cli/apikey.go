package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-scheduler/internal/auth"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys in the local database",
		Long:  "Create, list and revoke API keys. These commands open the server's SQLite database directly (see --db).",
	}
	cmd.AddCommand(newAPIKeyCreateCmd(), newAPIKeyListCmd(), newAPIKeyRevokeCmd())
	return cmd
}

func newAPIKeyCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an API key",
		Long:  "Create an API key. The raw key is printed once and cannot be recovered.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			raw, key, err := auth.NewAPIKeyStore(database).Create(context.Background(), args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(map[string]any{"id": key.ID, "name": key.Name, "key": raw})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %q created (#%d):\n\n  %s\n\nStore it now; it will not be shown again.\n", key.Name, key.ID, raw)
			return nil
		},
	}
}

func newAPIKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			keys, err := auth.NewAPIKeyStore(database).List(context.Background())
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(keys)
			}
			if len(keys) == 0 {
				fmt.Println("No API keys.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED"); err != nil {
				return fmt.Errorf("writing table header: %w", err)
			}
			for _, k := range keys {
				lastUsed := "never"
				if k.LastUsedAt != nil {
					lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
				}
				if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					k.ID, k.Name, k.CreatedAt.Format("2006-01-02 15:04"), lastUsed); err != nil {
					return fmt.Errorf("writing table row: %w", err)
				}
			}
			return w.Flush()
		},
	}
}

func newAPIKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("API key", args[0])
			if err != nil {
				return err
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			if err := auth.NewAPIKeyStore(database).Delete(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("API key #%d revoked.\n", id)
			return nil
		},
	}
}
