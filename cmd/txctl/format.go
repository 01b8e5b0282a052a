package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func printTransactions(out io.Writer, txs []models.Transaction) error {
	w := newTable(out)
	fmt.Fprintln(w, "ID\tDATE\tDESCRIPTION\tCATEGORY\tAMOUNT")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Description, tx.Category.Name, formatAmount(tx.Amount))
	}
	return w.Flush()
}

func printTransaction(out io.Writer, tx models.Transaction) error {
	return printTransactions(out, []models.Transaction{tx})
}
