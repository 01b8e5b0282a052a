package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sbilibin2017/gw-transactions/internal/store"
)

func deleteCmd(v *viper.Viper) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction after an undo grace period",
		Long: `Hides the transaction and sends the delete once the grace period ends.
Interrupt (Ctrl+C) before then to undo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			settled := make(chan error, 1)
			s := newSession(v,
				store.WithUndoGrace(grace),
				store.WithDeleteHook(func(deleted string, err error) {
					if deleted == id {
						settled <- err
					}
				}),
			)
			defer s.Close()

			// lookups must not be cut short by the interrupt that means undo
			ctx := cmd.Context()
			if _, err := s.find(context.WithoutCancel(ctx), id); err != nil {
				return err
			}
			if err := s.store.RequestDelete(id); err != nil {
				return fmt.Errorf("failed to delete transaction: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleting %s in %s, press Ctrl+C to undo.\n", id, grace)

			select {
			case err := <-settled:
				return reportDelete(cmd, id, err)
			case <-ctx.Done():
			}

			if s.store.Undo(id) {
				fmt.Fprintf(out, "Undone, %s was kept.\n", id)
				return nil
			}
			// too late, the delete is already on its way
			return reportDelete(cmd, id, <-settled)
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", store.DefaultUndoGrace, "how long the delete can be undone")
	return cmd
}

func reportDelete(cmd *cobra.Command, id string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", id)
	return nil
}
