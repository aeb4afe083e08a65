package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func newVisitsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "visits",
		Short: "List visits in a date range",
		Long: `List visits ordered by date and start time.

Without flags the range is today through seven days from now.

Examples:
  fsched visits
  fsched visits --from 2026-11-01 --to 2026-11-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := newAPIClient().ListVisits(from, to)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(records)
			}
			return printVisitTable(os.Stdout, records)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD, default a week after --from)")

	return cmd
}
