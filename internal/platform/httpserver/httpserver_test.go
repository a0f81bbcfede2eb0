package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestServeStopsCleanlyWhenContextEnds(t *testing.T) {
	ln := listen(t)
	srv := New(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestShutdownWaitsForInFlightRequests(t *testing.T) {
	ln := listen(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := New(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusNoContent)
	}), WithShutdownTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/cases")
		if err != nil {
			status <- 0
			return
		}
		_ = resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-entered
	cancel()
	select {
	case <-done:
		t.Fatal("server stopped before the request finished")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, http.StatusNoContent, <-status)
	require.NoError(t, <-done)
}

func TestOptions(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), WithWriteTimeout(2*time.Minute), WithShutdownTimeout(-1))
	assert.Equal(t, 2*time.Minute, srv.srv.WriteTimeout)
	assert.Equal(t, DefaultShutdownTimeout, srv.drainIn)
	assert.Equal(t, ":0", srv.Addr())
}
