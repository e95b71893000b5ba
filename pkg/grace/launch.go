package grace

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// SetupSignalHandler returns a context that is cancelled on the first SIGINT or SIGTERM.
// A second signal terminates the process immediately.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
		<-signals
		os.Exit(1)
	}()

	return ctx
}

// ExitOrLog logs err and exits with a non-zero code unless err is nil or a cancellation
func ExitOrLog(logger log.Logger, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	_ = level.Error(logger).Log("msg", "fatal error", "err", err)
	os.Exit(1)
}
