package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.Handler) (*Server, net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(handler, Options{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: 2 * time.Second,
	}, logger)
	return srv, ln
}

func TestServer_ServesAndShutsDownInReverseOrder(t *testing.T) {
	srv, ln := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	srv.OnShutdown("first", record("first"))
	srv.OnShutdown("second", record("second"))

	janitorStopped := make(chan struct{})
	srv.Go("janitor", func(ctx context.Context) {
		<-ctx.Done()
		close(janitorStopped)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}

	select {
	case <-janitorStopped:
	default:
		t.Fatal("background component was not stopped")
	}

	assert.Equal(t, []string{"second", "first"}, order)
}

func TestServer_ShutdownErrorsAreJoined(t *testing.T) {
	srv, ln := newTestServer(t, http.NotFoundHandler())

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	srv.OnShutdown("a", func(context.Context) error { return errA })
	srv.OnShutdown("b", func(context.Context) error { return errB })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Serve(ctx, ln)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}
