package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sentiment-alpha/internal/domain"
)

func newSignalsCmd(a *app) *cobra.Command {
	var (
		limit     int
		action    string
		asset     string
		asJSON    bool
		ascending bool
	)

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List recent signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be greater than zero")
			}
			rt, err := a.runtime()
			if err != nil {
				return err
			}

			filter := domain.SignalFilter{Asset: asset, Limit: limit, Asc: ascending}
			if action != "" {
				filter.Action = domain.Action(strings.ToLower(action))
			}
			list, err := rt.Service.ListSignals(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tASSET\tACTION\tEMA15\tMENTIONS\tCLOSE")
			for _, s := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%d\t%s\n",
					s.ID, s.Timestamp.UTC().Format("2006-01-02 15:04:05"), s.Asset,
					strings.ToUpper(string(s.Action)), s.EMA15, s.Mentions, closeText(s.PriceClose))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of signals to display")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action (accumulate, hold, wait)")
	cmd.Flags().StringVar(&asset, "asset", "", "Asset to list, defaults to the configured asset")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&ascending, "asc", false, "Oldest first")
	return cmd
}

func closeText(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
