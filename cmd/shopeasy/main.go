package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drstein77/shopeasy/internal/app"
	"go.uber.org/zap"
)

func main() {
	const shutdownTimeout = 5 * time.Second
	// Create a root context with the possibility of cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	server, err := app.NewServer(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := <-signalCh
		server.Log.Info("Received signal", zap.String("signal", sig.String()))

		// Perform graceful server shutdown
		server.Shutdown(shutdownTimeout)
		cancel()
	}()

	if err := server.Serve(); err != nil {
		server.Log.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	<-stopped
}
