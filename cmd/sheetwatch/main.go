package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pullus/sheetwatch"
)

var Version = "current"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer cancel()
	sheetwatch.Version = Version
	var cli sheetwatch.CLI
	code := cli.Run(ctx)
	cancel()
	os.Exit(code)
}
