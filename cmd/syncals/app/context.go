package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/syncals/syncals/pkg/logging"
)

// ContextWithSignals cancels the returned context on the first SIGINT or
// SIGTERM, so an apply in progress stops between changes and the journal
// stays consistent. A second signal exits at once with status 130.
func ContextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	stop := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(stop)
			cancel()
		})
	}

	go func() {
		select {
		case sig := <-sigs:
			logging.Default().Warn().Str("signal", sig.String()).Msg("Stopping after the current change, signal again to abort")
			cancel()
		case <-stop:
			return
		}
		select {
		case <-sigs:
			os.Exit(130)
		case <-stop:
		}
	}()

	return ctx, release
}
