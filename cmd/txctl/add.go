package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func addCmd(v *viper.Viper) *cobra.Command {
	var flags patchFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch, err := flags.patch(cmd.Flags())
			if err != nil {
				return err
			}

			s := newSession(v)
			defer s.Close()

			tx, err := s.store.Add(cmd.Context(), patch)
			if err != nil {
				return fmt.Errorf("failed to add transaction: %w", err)
			}
			return printTransaction(cmd.OutOrStdout(), tx)
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
