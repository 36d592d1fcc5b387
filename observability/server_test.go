package observability_test

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func scrape(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestServeMetrics(t *testing.T) {
	const addr = "127.0.0.1:50091"
	ctx, cancel := context.WithCancel(context.Background())
	wait, err := observability.ServeMetrics(ctx, addr)
	require.NoError(t, err)

	t.Run("http1", func(t *testing.T) {
		resp, body := scrape(t, http.DefaultClient, "http://"+addr+"/metrics")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, resp.ProtoMajor)
		assert.Contains(t, body, "go_goroutines")
	})

	t.Run("h2c", func(t *testing.T) {
		client := &http.Client{Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}}
		resp, body := scrape(t, client, "http://"+addr+"/metrics")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 2, resp.ProtoMajor)
		assert.Contains(t, body, "go_goroutines")
	})

	cancel()
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestServeMetricsInvalidAddress(t *testing.T) {
	wait, err := observability.ServeMetrics(context.Background(), "not-an-address")
	assert.Nil(t, wait)
	assert.ErrorContains(t, err, "error listening on metrics address 'not-an-address'")
}
