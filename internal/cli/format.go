package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/field-scheduler/internal/customer"
	"github.com/evcraddock/field-scheduler/internal/technician"
	"github.com/evcraddock/field-scheduler/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVisitSummary prints a single visit in text format.
func printVisitSummary(w io.Writer, rec *visit.Record) {
	fmt.Fprintf(w, "Visit #%d\n", rec.ID)
	fmt.Fprintf(w, "  Date:        %s %s\n", rec.VisitDate, formatInterval(rec.StartTime, rec.EndTime))
	fmt.Fprintf(w, "  State:       %s\n", rec.State.Label())
	fmt.Fprintf(w, "  Technician:  %s\n", technicianName(rec))
	fmt.Fprintf(w, "  Client:      %s\n", clientName(rec))
	if rec.Client != nil && rec.Client.Address != "" {
		fmt.Fprintf(w, "  Address:     %s\n", rec.Client.Address)
	}
	fmt.Fprintf(w, "  Service:     %s\n", rec.ServiceType)
	if rec.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", rec.Description)
	}
	if rec.Notes != "" {
		fmt.Fprintf(w, "  Notes:       %s\n", rec.Notes)
	}
}

// printVisitTable prints a list of visits as a formatted table.
func printVisitTable(out io.Writer, records []visit.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No visits found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tDATE\tTIME\tTECHNICIAN\tCLIENT\tSERVICE\tSTATE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t----\t----\t----------\t------\t-------\t-----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for i := range records {
		rec := &records[i]
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID, rec.VisitDate, formatInterval(rec.StartTime, rec.EndTime),
			truncate(technicianName(rec), 24), truncate(clientName(rec), 30),
			truncate(rec.ServiceType, 20), rec.State); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d visits\n", len(records))
	return nil
}

// printStatsTable prints per-technician counts.
func printStatsTable(out io.Writer, stats []visit.TechnicianStats) error {
	if len(stats) == 0 {
		fmt.Fprintln(out, "No active technicians.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintln(w, "ID\tTECHNICIAN\tTOTAL\tCOMPLETED\tSCHEDULED\t"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, s := range stats {
		name := strings.TrimSpace(s.FirstName + " " + s.LastName)
		if _, err := fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t\n",
			s.TechnicianID, name, s.Total, s.Completed, s.Scheduled); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// printTechnicianTable prints technicians as a formatted table.
func printTechnicianTable(out io.Writer, techs []*technician.Technician) error {
	if len(techs) == 0 {
		fmt.Fprintln(out, "No technicians found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tSPECIALTY\tPHONE\tEMAIL\tACTIVE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, t := range techs {
		active := "yes"
		if !t.Active {
			active = "no"
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.FullName(), orDash(t.Specialty), t.Phone, t.Email, active); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// printClientTable prints clients as a formatted table.
func printClientTable(out io.Writer, list []*customer.Customer) error {
	if len(list) == 0 {
		fmt.Fprintln(out, "No clients found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tPHONE\tADDRESS\tVISITS\tLAST VISIT"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, c := range list {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, truncate(c.DisplayName(), 36), c.Phone, truncate(c.Address, 30),
			c.VisitCount, orDash(c.LastVisit)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// formatInterval renders "09:00:00", "10:30:00" as "09:00-10:30".
func formatInterval(start, end string) string {
	return hhmm(start) + "-" + hhmm(end)
}

func hhmm(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

func technicianName(rec *visit.Record) string {
	if rec.Technician == nil {
		return fmt.Sprintf("#%d", rec.TechnicianID)
	}
	return strings.TrimSpace(rec.Technician.FirstName + " " + rec.Technician.LastName)
}

func clientName(rec *visit.Record) string {
	if rec.Client == nil {
		return fmt.Sprintf("#%d", rec.ClientID)
	}
	name := strings.TrimSpace(rec.Client.FirstName + " " + rec.Client.LastName)
	if rec.Client.Company != "" {
		name += " (" + rec.Client.Company + ")"
	}
	return name
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
