package livereload

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesConnectedAndSkipsDisconnected(t *testing.T) {
	hub := NewHub()
	gone := hub.Subscribe()
	live := hub.Subscribe()
	require.Equal(t, 2, hub.Clients())

	gone.Close()

	delivered := hub.Broadcast()
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, hub.Clients())

	select {
	case msg := <-live.C():
		assert.Equal(t, ReloadSignal, msg)
	case <-time.After(time.Second):
		t.Fatal("connected client did not receive reload")
	}
}

func TestBroadcastKeepsBackloggedClient(t *testing.T) {
	hub := NewHub()
	slow := hub.Subscribe()

	for i := 0; i < hub.bufferSize; i++ {
		assert.Equal(t, 1, hub.Broadcast())
	}
	// Buffer full: skipped, not disconnected.
	assert.Equal(t, 0, hub.Broadcast())
	assert.Equal(t, 1, hub.Clients())
	select {
	case <-slow.Done():
		t.Fatal("backlogged client was disconnected")
	default:
	}

	<-slow.C()
	assert.Equal(t, 1, hub.Broadcast())
}

func TestBroadcastWithNoClients(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Broadcast())
}

func TestShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	hub.Shutdown()

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription still open after shutdown")
	}
	assert.Nil(t, hub.Subscribe())
	assert.Equal(t, 0, hub.Broadcast())
	hub.Shutdown()
}

func TestServeHTTPStreamsReload(t *testing.T) {
	hub := NewHub(WithHeartbeat(time.Hour))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	// A client that connects and goes away again.
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cancel()
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan string, 1)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if err != nil {
				done <- ""
				return
			}
			if strings.HasPrefix(l, "data: ") {
				done <- strings.TrimSpace(strings.TrimPrefix(l, "data: "))
				return
			}
		}
	}()

	assert.Equal(t, 1, hub.Broadcast())
	select {
	case msg := <-done:
		assert.Equal(t, ReloadSignal, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no reload event received")
	}
}
