package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wavepulse/internal/logging"
)

// ForcedShutdownTimeout is the time after the first signal at which the
// process exits even if shutdown has not finished.
const ForcedShutdownTimeout = 15 * time.Second

// SignalContext returns a context cancelled on SIGINT or SIGTERM. A second
// signal, or a shutdown that outlives ForcedShutdownTimeout, exits the process.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-done:
			return
		}

		forceExit := time.NewTimer(ForcedShutdownTimeout)
		defer forceExit.Stop()
		select {
		case sig := <-sigChan:
			logging.Warn("second signal, exiting", "signal", sig)
			os.Exit(1)
		case <-forceExit.C:
			logging.Warn("forced shutdown due to timeout")
			os.Exit(1)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
}
