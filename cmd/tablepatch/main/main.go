package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/arthur-debert/tablepatch/cmd/tablepatch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := tablepatch.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		tablepatch.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
