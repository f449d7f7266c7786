package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/appcanvas/appcanvas/pkg/appcanvas"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appcanvas.Exit(ctx)
}
