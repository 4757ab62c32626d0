// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/cycle-cli/cmd"
)

// main is the entry point for the Cycle CLI application.
func main() {
	// SIGINT and SIGTERM cancel the context, which stops the replay at its
	// next blocking point.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
