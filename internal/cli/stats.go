package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show visit counts per technician",
		Long:  "Show how many non-cancelled visits each active technician has in a date range.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := newAPIClient().Stats(from, to)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(stats)
			}
			return printStatsTable(os.Stdout, stats)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD, default a week after --from)")

	return cmd
}
