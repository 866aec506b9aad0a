package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ridewave/internal/modules/pricing"
)

func newQuoteCmd() *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "quote <distance-km>",
		Short: "Print the fare for every vehicle tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("distance %q: %w", args[0], err)
			}
			q, err := pricing.QuoteFare(km)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "VEHICLE\tFARE\n")
			for _, r := range pricing.Rates() {
				fmt.Fprintf(w, "%s\t%d %s\n", r.Tier, q[r.Tier], currency)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "INR", "currency label")
	return cmd
}
