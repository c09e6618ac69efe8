package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thushan/striker/internal/cli"
)

func main() {
	// cancel running commands and backoff sleeps on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
