package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sbilibin2017/gw-transactions/internal/report"
)

func summaryCmd(v *viper.Viper) *cobra.Command {
	var (
		by    string
		pages int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize spending by day or by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if by != "day" && by != "category" {
				return fmt.Errorf("invalid --by %q, expected day or category", by)
			}

			s := newSession(v)
			defer s.Close()

			if err := s.loadPages(cmd.Context(), pages); err != nil {
				return err
			}

			txs := s.store.Transactions()
			w := newTable(cmd.OutOrStdout())
			if by == "day" {
				fmt.Fprintln(w, "DATE\tCOUNT\tTOTAL")
				for _, g := range report.GroupByDay(txs) {
					fmt.Fprintf(w, "%s\t%d\t%s\n", g.Date, len(g.Transactions), formatAmount(g.Total))
				}
			} else {
				fmt.Fprintln(w, "CATEGORY\tCOUNT\tTOTAL\tSHARE")
				for _, c := range report.TotalsByCategory(txs) {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s%%\n",
						c.Category.Name, c.Count, formatAmount(c.Total), c.Share.Shift(2).StringFixed(1))
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&by, "by", "category", "group by day or category")
	cmd.Flags().IntVar(&pages, "pages", 0, "number of pages to include, 0 includes all")
	return cmd
}
