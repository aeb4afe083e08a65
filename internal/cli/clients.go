package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-scheduler/internal/customer"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}
	cmd.AddCommand(newClientAddCmd(), newClientListCmd(), newClientSearchCmd(), newClientRemoveCmd())
	return cmd
}

func newClientAddCmd() *cobra.Command {
	var c customer.Customer

	cmd := &cobra.Command{
		Use:   "add <first> <last>",
		Short: "Add a client",
		Long: `Add a client.

Example:
  fsched client add Luis Gomez --phone 555-0200 --address "1 Main St" --city Springfield`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.FirstName, c.LastName = args[0], args[1]
			created, err := newAPIClient().AddClient(&c)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(created)
			}
			fmt.Printf("Client #%d added: %s\n", created.ID, created.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVar(&c.Company, "company", "", "company name")
	cmd.Flags().StringVar(&c.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&c.Email, "email", "", "email address")
	cmd.Flags().StringVar(&c.Address, "address", "", "street address of the site")
	cmd.Flags().StringVar(&c.City, "city", "", "city")

	return cmd
}

func newClientListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List clients with their visit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newAPIClient().ListClients()
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(list)
			}
			return printClientTable(os.Stdout, list)
		},
	}
}

func newClientSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find clients by name or company",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newAPIClient().SearchClients(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(list)
			}
			return printClientTable(os.Stdout, list)
		},
	}
}

func newClientRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a client",
		Long:  "Remove a client. Clients with visits on record cannot be removed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("client", args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient().DeleteClient(id); err != nil {
				return err
			}
			if isJSON() {
				return printJSON(map[string]any{"id": id, "removed": true})
			}
			fmt.Printf("Client #%d removed.\n", id)
			return nil
		},
	}
}
