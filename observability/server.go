package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServeMetrics serves the metrics of the default prometheus registry on
// addr under /metrics until ctx is done. Both HTTP/1.1 and cleartext
// HTTP/2 (h2c) scrapes are accepted. The returned function blocks
// until the server has stopped.
func ServeMetrics(ctx context.Context, addr string) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error listening on metrics address '%s': %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	l := logrus.WithField("metrics_addr", lis.Addr().String())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Info("serving metrics")
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.
				WithError(err).
				Error("error serving metrics")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			l.
				WithError(err).
				Error("error shutting down metrics server")
		}
	}()

	return func() { <-done }, nil
}
