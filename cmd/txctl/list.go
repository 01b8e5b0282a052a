package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func listCmd(v *viper.Viper) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(v)
			defer s.Close()

			if err := s.loadPages(cmd.Context(), pages); err != nil {
				return err
			}

			txs := s.store.Transactions()
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions found.")
				return nil
			}
			if err := printTransactions(cmd.OutOrStdout(), txs); err != nil {
				return err
			}
			if s.store.HasMore() {
				fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d pages, more available (use --pages).\n", s.store.Page()+1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load, 0 loads all")
	return cmd
}
