package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/ui"
)

func backupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Save, inspect or restore a local recovery copy of the graph",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show when the local backup was saved",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				w := cmd.OutOrStdout()
				at, err := a.session.LocalSavedAt(cmd.Context())
				if errors.Is(err, domain.ErrNotFound) {
					ui.Subtle.Fprintln(w, "  No backup saved yet. Save one with `dialoguectl backup save`.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  backup saved at %s\n", at.Local().Format(time.DateTime))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Discard the local backup",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.session.ClearLocal(cmd.Context()); err != nil {
					return err
				}
				ui.Good.Fprintf(cmd.OutOrStdout(), "  %s backup cleared\n", ui.StatusIcon(true))
				return nil
			},
		},
		&cobra.Command{
			Use:   "save",
			Short: "Save the current graph to the local backup slot",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				at, err := a.session.SaveLocal(cmd.Context())
				if err != nil {
					return err
				}
				ui.Good.Fprintf(cmd.OutOrStdout(), "  %s backup saved at %s\n",
					ui.StatusIcon(true), at.Local().Format(time.DateTime))
				return nil
			},
		},
		&cobra.Command{
			Use:   "load",
			Short: "Replace the graph with the local backup",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := a.session.LoadLocal(cmd.Context())
				if err != nil {
					return err
				}
				saved := "unknown time"
				if doc.Timestamp != nil {
					saved = doc.Timestamp.Local().Format(time.DateTime)
				}
				ui.Good.Fprintf(cmd.OutOrStdout(), "  %s restored %d node(s), %d connection(s) from backup of %s\n",
					ui.StatusIcon(true), len(doc.Nodes), len(doc.Connections), saved)
				return nil
			},
		},
	)
	return cmd
}
