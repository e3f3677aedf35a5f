package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/ui"
)

func nodesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nodes",
		Aliases: []string{"node", "n"},
		Short:   "List and edit dialogue nodes",
	}
	cmd.AddCommand(nodesListCmd(a), nodesAddCmd(a), nodesEditCmd(a), nodesRemoveCmd(a))
	return cmd
}

func nodesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List nodes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			store := a.session.Store()
			nodes := store.Nodes()
			if len(nodes) == 0 {
				ui.Subtle.Fprintln(w, "  No nodes yet. Add one with `dialoguectl nodes add npc`.")
				return nil
			}

			rows := make([][]string, 0, len(nodes))
			for _, n := range nodes {
				rows = append(rows, []string{
					strconv.Itoa(n.ID),
					ui.KindColor(string(n.Kind)).Sprint(string(n.Kind)),
					fmt.Sprintf("%g,%g", n.X, n.Y),
					ui.Truncate(n.Text, 40),
					strconv.Itoa(len(n.Choices)),
					strconv.Itoa(len(store.ConnectionsOf(n.ID))),
				})
			}
			ui.Table(w, []string{"ID", "TYPE", "POS", "TEXT", "CHOICES", "EDGES"}, rows)
			return nil
		},
	}
}

// nodeFlags are the editable fields shared by add and edit
type nodeFlags struct {
	kind    string
	x, y    float64
	text    string
	choices []string
	npc     string

	requireItems    []string
	requireLocation string
	condition       string

	giveItems      []string
	removeItems    []string
	changeLocation string
	consequence    string
}

func (f *nodeFlags) register(cmd *cobra.Command, withKind bool) {
	fl := cmd.Flags()
	if withKind {
		fl.StringVar(&f.kind, "type", "", "node type (npc, player, dialogue)")
	}
	fl.Float64Var(&f.x, "x", 0, "x position")
	fl.Float64Var(&f.y, "y", 0, "y position")
	fl.StringVar(&f.text, "text", "", "node text")
	fl.StringArrayVar(&f.choices, "choice", nil, "player choice (repeatable)")
	fl.StringVar(&f.npc, "npc", "", "associated NPC")

	fl.StringArrayVar(&f.requireItems, "require-item", nil, "item the player must hold (repeatable)")
	fl.StringVar(&f.requireLocation, "require-location", "", "location the player must be in")
	fl.StringVar(&f.condition, "condition", "", "free-form condition")
	fl.StringArrayVar(&f.giveItems, "give-item", nil, "item handed to the player (repeatable)")
	fl.StringArrayVar(&f.removeItems, "remove-item", nil, "item taken from the player (repeatable)")
	fl.StringVar(&f.changeLocation, "change-location", "", "location the player moves to")
	fl.StringVar(&f.consequence, "consequence", "", "free-form consequence")
}

// patch builds a NodePatch from the flags the user actually set.
// Condition and consequence flags change single fields of current's
// blocks and leave the rest as they are.
func (f *nodeFlags) patch(cmd *cobra.Command, current domain.Node) (domain.NodePatch, error) {
	var p domain.NodePatch
	changed := cmd.Flags().Changed

	if changed("type") {
		kind, ok := domain.ParseNodeKind(f.kind)
		if !ok {
			return p, fmt.Errorf("unknown node type %q", f.kind)
		}
		p.Kind = &kind
	}
	if changed("x") {
		p.X = &f.x
	}
	if changed("y") {
		p.Y = &f.y
	}
	if changed("text") {
		p.Text = &f.text
	}
	if changed("choice") {
		p.Choices = &f.choices
	}
	if changed("npc") {
		p.AssociatedNPC = &f.npc
	}

	cond := current.Clone().Conditions
	condSet := false
	if changed("require-item") {
		cond.RequiredItems, condSet = f.requireItems, true
	}
	if changed("require-location") {
		cond.RequiredLocation, condSet = f.requireLocation, true
	}
	if changed("condition") {
		cond.Custom, condSet = f.condition, true
	}
	if condSet {
		p.Conditions = &cond
	}

	cons := current.Clone().Consequences
	consSet := false
	if changed("give-item") {
		cons.GiveItems, consSet = f.giveItems, true
	}
	if changed("remove-item") {
		cons.RemoveItems, consSet = f.removeItems, true
	}
	if changed("change-location") {
		cons.ChangeLocation, consSet = f.changeLocation, true
	}
	if changed("consequence") {
		cons.Custom, consSet = f.consequence, true
	}
	if consSet {
		p.Consequences = &cons
	}
	return p, nil
}

func nodesAddCmd(a *app) *cobra.Command {
	var f nodeFlags
	cmd := &cobra.Command{
		Use:   "add <npc|player|dialogue>",
		Short: "Add a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseNodeKind(args[0])
			if !ok {
				return fmt.Errorf("unknown node type %q", args[0])
			}

			var pos *domain.Position
			if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
				p := domain.DefaultNodePosition
				if cmd.Flags().Changed("x") {
					p.X = f.x
				}
				if cmd.Flags().Changed("y") {
					p.Y = f.y
				}
				pos = &p
			}

			node, err := a.session.AddNode(kind, pos)
			if err != nil {
				return err
			}

			patch, err := f.patch(cmd, node)
			if err != nil {
				return err
			}
			patch.X, patch.Y = nil, nil
			if patch != (domain.NodePatch{}) {
				if node, err = a.session.EditNode(node.ID, patch); err != nil {
					return err
				}
			}

			ui.Good.Fprintf(cmd.OutOrStdout(), "  %s node %d added (%s at %g,%g)\n",
				ui.StatusIcon(true), node.ID, node.Kind, node.X, node.Y)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func nodesEditCmd(a *app) *cobra.Command {
	var f nodeFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a node's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, _ := a.session.Store().Node(id)
			patch, err := f.patch(cmd, current)
			if err != nil {
				return err
			}
			if patch == (domain.NodePatch{}) {
				return fmt.Errorf("nothing to change; pass a field flag such as --text, --choice or --give-item (see --help)")
			}

			node, err := a.session.EditNode(id, patch)
			if err != nil {
				return err
			}
			ui.Good.Fprintf(cmd.OutOrStdout(), "  %s node %d updated\n", ui.StatusIcon(true), node.ID)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func nodesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a node and its connections",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			removed, err := a.session.DeleteNode(id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			ui.Good.Fprintf(w, "  %s node %d deleted\n", ui.StatusIcon(true), id)
			if len(removed) > 0 {
				ids := make([]string, len(removed))
				for i, c := range removed {
					ids[i] = strconv.Itoa(c.ID)
				}
				ui.Subtle.Fprintf(w, "  removed connection(s) %s\n", strings.Join(ids, ", "))
			}
			return nil
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
