package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/evcraddock/field-scheduler/internal/visit"
)

// visitFlags are the field flags shared by "visit add" and "visit update".
type visitFlags struct {
	technicianID int64
	clientID     int64
	date         string
	start        string
	end          string
	service      string
	description  string
	notes        string
}

func (f *visitFlags) register(fs *pflag.FlagSet) {
	fs.Int64Var(&f.technicianID, "tech", 0, "technician ID")
	fs.Int64Var(&f.clientID, "client", 0, "client ID")
	fs.StringVar(&f.date, "date", "", "visit date (YYYY-MM-DD)")
	fs.StringVar(&f.start, "start", "", "start time (HH:MM)")
	fs.StringVar(&f.end, "end", "", "end time (HH:MM)")
	fs.StringVar(&f.service, "service", "", "service type, e.g. repair or inspection")
	fs.StringVar(&f.description, "description", "", "work description")
	fs.StringVarP(&f.notes, "notes", "n", "", "notes for the technician")
}

// request builds a visit request from an existing record, overriding only
// the flags that were set. A nil base starts from an empty request.
func (f *visitFlags) request(fs *pflag.FlagSet, base *visit.Record) visit.Request {
	var req visit.Request
	if base != nil {
		req = visit.Request{
			TechnicianID: base.TechnicianID,
			ClientID:     base.ClientID,
			VisitDate:    base.VisitDate,
			StartTime:    base.StartTime,
			EndTime:      base.EndTime,
			ServiceType:  base.ServiceType,
			Description:  base.Description,
			Notes:        base.Notes,
		}
	}

	set := func(name string, apply func()) {
		if base == nil || fs.Changed(name) {
			apply()
		}
	}
	set("tech", func() { req.TechnicianID = f.technicianID })
	set("client", func() { req.ClientID = f.clientID })
	set("date", func() { req.VisitDate = f.date })
	set("start", func() { req.StartTime = f.start })
	set("end", func() { req.EndTime = f.end })
	set("service", func() { req.ServiceType = f.service })
	set("description", func() { req.Description = f.description })
	set("notes", func() { req.Notes = f.notes })
	return req
}

func newVisitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Manage a single visit",
		Long:  "Book, edit, cancel, complete, inspect or delete a visit.",
	}

	cmd.AddCommand(
		newVisitAddCmd(),
		newVisitUpdateCmd(),
		newVisitShowCmd(),
		newVisitStateCmd("cancel", "Cancel a visit", "Cancel a visit, freeing the technician's time slot."),
		newVisitStateCmd("complete", "Mark a visit as completed", "Mark a scheduled visit as completed."),
		newVisitDeleteCmd(),
	)
	return cmd
}

func newVisitAddCmd() *cobra.Command {
	var f visitFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Book a new visit",
		Long: `Book a new visit for a technician at a client.

The visit is rejected if the technician already has a visit that overlaps
the requested time on that date.

Examples:
  fsched visit add --tech 1 --client 4 --date 2026-11-02 --start 09:00 --end 10:30 --service repair
  fsched visit add --client 4 --date 2026-11-02 --start 14:00 --end 15:00 --service inspection -n "gate code 1234"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := f.request(cmd.Flags(), nil)
			if req.TechnicianID == 0 {
				req.TechnicianID = getDefaultTechnician()
			}
			rec, err := newAPIClient().CreateVisit(req)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(rec)
			}
			fmt.Printf("Visit #%d booked.\n", rec.ID)
			printVisitSummary(os.Stdout, rec)
			return nil
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func newVisitUpdateCmd() *cobra.Command {
	var f visitFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a visit",
		Long: `Edit a visit. Only the flags given are changed.

Examples:
  fsched visit update 12 --start 10:00 --end 11:30
  fsched visit update 12 --tech 3 --notes "reassigned"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("visit", args[0])
			if err != nil {
				return err
			}

			c := newAPIClient()
			current, err := c.GetVisit(id)
			if err != nil {
				return err
			}
			rec, err := c.UpdateVisit(id, f.request(cmd.Flags(), current))
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(rec)
			}
			fmt.Printf("Visit #%d updated.\n", rec.ID)
			printVisitSummary(os.Stdout, rec)
			return nil
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func newVisitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show visit details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("visit", args[0])
			if err != nil {
				return err
			}
			rec, err := newAPIClient().GetVisit(id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(rec)
			}
			printVisitSummary(os.Stdout, rec)
			return nil
		},
	}
}

// newVisitStateCmd builds the cancel and complete commands.
func newVisitStateCmd(action, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("visit", args[0])
			if err != nil {
				return err
			}

			c := newAPIClient()
			var rec *visit.Record
			if action == "cancel" {
				rec, err = c.CancelVisit(id)
			} else {
				rec, err = c.CompleteVisit(id)
			}
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(rec)
			}
			fmt.Printf("Visit #%d is now %s.\n", rec.ID, rec.State)
			return nil
		},
	}
}

func newVisitDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete a cancelled visit",
		Long:  "Permanently delete a visit. Only cancelled visits can be deleted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("visit", args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient().DeleteVisit(id); err != nil {
				return err
			}
			if isJSON() {
				return printJSON(map[string]any{"id": id, "removed": true})
			}
			fmt.Printf("Visit #%d deleted.\n", id)
			return nil
		},
	}
}
