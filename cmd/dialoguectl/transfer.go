package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dialoguetree/internal/codec"
	"dialoguetree/internal/ui"
)

func exportCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graph as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = codec.FormatFromPath(output)
			}
			if output == "" || output == "-" {
				return a.session.Export(cmd.OutOrStdout(), format)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			bw := bufio.NewWriter(f)
			if err := a.session.Export(bw, format); err != nil {
				f.Close()
				return err
			}
			if err := bw.Flush(); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			snap := a.session.Store().Snapshot()
			ui.Good.Fprintf(cmd.OutOrStdout(), "  %s exported %d node(s), %d connection(s) to %s\n",
				ui.StatusIcon(true), len(snap.Nodes), len(snap.Connections), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from --output, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the graph with a JSON or YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if format == "" {
				format = codec.FormatFromPath(path)
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := a.session.Import(f, format); err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}

			snap := a.session.Store().Snapshot()
			ui.Good.Fprintf(cmd.OutOrStdout(), "  %s imported %d node(s), %d connection(s)\n",
				ui.StatusIcon(true), len(snap.Nodes), len(snap.Connections))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from file extension)")
	return cmd
}
