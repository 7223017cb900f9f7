package supervisor

// Supporting infrastructure to allow running some non-Go payloads under supervision.

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// HTTPServer creates a Runnable that serves HTTP requests as long as it's not
// canceled. If graceful is set to true, the server drains in-flight requests
// on shutdown; handlers that stream must watch their request context for this
// to terminate. Otherwise the server is closed immediately.
func HTTPServer(srv *http.Server, lis net.Listener, graceful bool) Runnable {
	return func(ctx context.Context) error {
		Signal(ctx, SignalHealthy)
		errC := make(chan error, 1)
		go func() {
			errC <- srv.Serve(lis)
		}()
		select {
		case <-ctx.Done():
			if graceful {
				if err := srv.Shutdown(context.Background()); err != nil {
					return err
				}
			} else if err := srv.Close(); err != nil {
				return err
			}
			return ctx.Err()
		case err := <-errC:
			if errors.Is(err, http.ErrServerClosed) {
				return ctx.Err()
			}
			return err
		}
	}
}
