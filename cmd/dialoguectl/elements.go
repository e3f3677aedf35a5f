package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/ui"
)

func elementsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "elements",
		Aliases: []string{"el"},
		Short:   "Manage NPCs, items and locations",
	}
	cmd.AddCommand(elementsListCmd(a), elementsAddCmd(a), elementsRemoveCmd(a))
	return cmd
}

func elementsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered game elements",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			elements := a.session.Store().Elements()
			rows := make([][]string, 0, len(domain.ElementKinds))
			for _, kind := range domain.ElementKinds {
				names := elements.Names(kind)
				cell := ui.Subtle.Sprint("-")
				if len(names) > 0 {
					cell = strings.Join(names, ", ")
				}
				rows = append(rows, []string{string(kind), cell})
			}
			ui.Table(cmd.OutOrStdout(), []string{"KIND", "NAMES"}, rows)
			return nil
		},
	}
}

func parseElementArgs(args []string) (domain.ElementKind, string, error) {
	kind, ok := domain.ParseElementKind(args[0])
	if !ok {
		return "", "", fmt.Errorf("unknown element kind %q (want npcs, items or locations)", args[0])
	}
	return kind, args[1], nil
}

func elementsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <kind> <name>",
		Short: "Register a game element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, name, err := parseElementArgs(args)
			if err != nil {
				return err
			}
			added, err := a.session.AddElement(kind, name)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !added {
				ui.Subtle.Fprintf(w, "  %s %q already registered\n", kind, name)
				return nil
			}
			ui.Good.Fprintf(w, "  %s %s %q added\n", ui.StatusIcon(true), kind, name)
			return nil
		},
	}
}

func elementsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <kind> <name>",
		Aliases: []string{"remove"},
		Short:   "Unregister a game element",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, name, err := parseElementArgs(args)
			if err != nil {
				return err
			}
			removed, err := a.session.RemoveElement(kind, name)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !removed {
				ui.Subtle.Fprintf(w, "  %s %q was not registered\n", kind, name)
				return nil
			}
			ui.Good.Fprintf(w, "  %s %s %q removed\n", ui.StatusIcon(true), kind, name)
			return nil
		},
	}
}
