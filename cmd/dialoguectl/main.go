package main

import (
	"context"
	"os"
	"os/signal"

	"dialoguetree/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		ui.Bad.Fprintf(os.Stderr, "dialoguectl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
