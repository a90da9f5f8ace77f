package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// runWithSignals runs fn until it returns or an interrupt signal is
// received. On interrupt, fn's context is cancelled and runWithSignals
// waits for fn to return. Cancellation is not reported as an error.
func runWithSignals(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	go func() { done <- fn(ctx) }()

	var err error
	select {
	case <-sig:
		cancel()
		err = <-done
	case err = <-done:
		// continue...
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
