package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// patchFlags are the transaction fields shared by add and edit.
type patchFlags struct {
	description string
	amount      string
	category    string
	date        string
}

func (f *patchFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "what the money was spent on")
	fs.StringVar(&f.amount, "amount", "", "positive amount, e.g. 12.50")
	fs.StringVar(&f.category, "category", "", "category name, e.g. \"Food & Dining\"")
	fs.StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
}

// patch builds a patch from the flags the user actually set.
func (f *patchFlags) patch(fs *pflag.FlagSet) (models.TransactionPatch, error) {
	var p models.TransactionPatch
	if fs.Changed("description") {
		desc := f.description
		p.Description = &desc
	}
	if fs.Changed("amount") {
		amount, err := decimal.NewFromString(strings.TrimSpace(f.amount))
		if err != nil {
			return p, models.NewValidationError("amount", "amount must be a number")
		}
		p.Amount = &amount
	}
	if fs.Changed("category") {
		category := f.category
		p.Category = &category
	}
	if fs.Changed("date") {
		date, err := models.ParseDate(f.date)
		if err != nil {
			return p, models.NewValidationError("date", "date must be YYYY-MM-DD")
		}
		p.Date = &date
	}
	return p, nil
}

func editCmd(v *viper.Viper) *cobra.Command {
	var flags patchFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd.Flags())
			if err != nil {
				return err
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to change, set at least one of --description, --amount, --category, --date")
			}

			s := newSession(v)
			defer s.Close()

			ctx := cmd.Context()
			if _, err := s.find(ctx, args[0]); err != nil {
				return err
			}
			tx, err := s.store.Update(ctx, args[0], patch)
			if err != nil {
				return fmt.Errorf("failed to update transaction: %w", err)
			}
			return printTransaction(cmd.OutOrStdout(), tx)
		},
	}

	flags.register(cmd.Flags())
	return cmd
}
