package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/skosovsky/toolbridge/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	code := cli.Execute(ctx, cli.Options{Version: version}, os.Args[1:])
	stop()
	os.Exit(code)
}
