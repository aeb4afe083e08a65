package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-scheduler/internal/technician"
)

func newTechCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tech",
		Short: "Manage technicians",
	}
	cmd.AddCommand(newTechAddCmd(), newTechListCmd(), newTechDeactivateCmd())
	return cmd
}

func newTechAddCmd() *cobra.Command {
	var t technician.Technician

	cmd := &cobra.Command{
		Use:   "add <first> <last>",
		Short: "Add a technician",
		Long: `Add a technician.

Example:
  fsched tech add Ana Ruiz --phone 555-0100 --email ana@example.com --specialty electrical`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t.FirstName, t.LastName = args[0], args[1]
			created, err := newAPIClient().AddTechnician(&t)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(created)
			}
			fmt.Printf("Technician #%d added: %s\n", created.ID, created.FullName())
			return nil
		},
	}

	cmd.Flags().StringVar(&t.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&t.Email, "email", "", "email address")
	cmd.Flags().StringVar(&t.Specialty, "specialty", "", "trade or specialty")

	return cmd
}

func newTechListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List technicians",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			techs, err := newAPIClient().ListTechnicians(all)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(techs)
			}
			return printTechnicianTable(os.Stdout, techs)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive technicians")
	return cmd
}

func newTechDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a technician",
		Long:  "Deactivate a technician. Their visits are kept, but they can no longer be booked.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("technician", args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient().DeactivateTechnician(id); err != nil {
				return err
			}
			if isJSON() {
				return printJSON(map[string]any{"id": id, "active": false})
			}
			fmt.Printf("Technician #%d deactivated.\n", id)
			return nil
		},
	}
}
