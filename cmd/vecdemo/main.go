package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kailas-cloud/vecdemo/cmd/vecdemo/commands"
	"github.com/kailas-cloud/vecdemo/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env must be in the environment before flags read their env sources.
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := commands.New().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "vecdemo:", err)
		os.Exit(1)
	}
}
