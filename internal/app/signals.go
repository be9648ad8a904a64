package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// SetupSignalHandler returns a context canceled on SIGINT or SIGTERM. When
// graceful shutdown takes longer than grace the process exits with status 1.
func SetupSignalHandler(logger *zap.Logger, grace time.Duration) (context.Context, context.CancelFunc) {
	return setupSignalHandler(logger, grace, func() { os.Exit(1) })
}

func setupSignalHandler(logger *zap.Logger, grace time.Duration, exit func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case <-time.After(grace):
			logger.Error("forced shutdown after timeout", zap.Duration("grace", grace))
			exit()
		case <-sigChan:
			logger.Error("second signal, forcing shutdown")
			exit()
		}
	}()

	return ctx, cancel
}
