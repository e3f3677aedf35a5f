package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dialoguetree/internal/canvas"
	"dialoguetree/internal/domain"
	"dialoguetree/internal/ui"
)

func connectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <from> <to>",
		Short: "Connect one node's output to another node's input",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0])
			if err != nil {
				return err
			}
			to, err := parseID(args[1])
			if err != nil {
				return err
			}

			// Same two clicks a user makes on the canvas
			a.session.ActivatePort(from, domain.PortOutput)
			res := a.session.ActivatePort(to, domain.PortInput)

			switch res.Outcome {
			case canvas.OutcomeConnected:
				c := res.Connection
				ui.Good.Fprintf(cmd.OutOrStdout(), "  %s connection %d: %d → %d\n", ui.StatusIcon(true), c.ID, c.From, c.To)
				return nil
			case canvas.OutcomeCancelled:
				return domain.Errorf(domain.KindInvalidEdge, "connect", "node %d cannot connect to itself", from)
			case canvas.OutcomeFailed:
				return res.Err
			}
			return fmt.Errorf("connect: unexpected outcome %s", res.Outcome)
		},
	}
}

func disconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <connection-id>",
		Short: "Delete a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.session.DeleteConnection(id); err != nil {
				return err
			}
			ui.Good.Fprintf(cmd.OutOrStdout(), "  %s connection %d deleted\n", ui.StatusIcon(true), id)
			return nil
		},
	}
}
