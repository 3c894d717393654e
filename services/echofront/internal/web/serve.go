package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

const shutdownTimeout = 5 * time.Second

// Serve runs srv on ln until ctx is done. It returns only after Shutdown completed, so in-flight
// requests get to finish.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			klogging.Error(ctx).WithError(err).Log("ServerShutdownFailed", "")
		}
	}()

	klogging.Info(ctx).With("addr", ln.Addr().String()).Log("ServerListening", "")
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return kerror.Wrap(err, "ListenFailed", "web server failed", false).With("addr", ln.Addr().String())
	}
	<-shutdownDone
	klogging.Info(ctx).Log("ServerExited", "")
	return nil
}
