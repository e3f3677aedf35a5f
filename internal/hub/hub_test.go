package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func TestBroadcastReachesClient(t *testing.T) {
	var count atomic.Int64
	h := New(nil, WithClientGauge(func(n int) { count.Store(int64(n)) }))
	go h.Run()
	defer h.Stop()

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, r))
	readLine(t, r)

	require.Eventually(t, func() bool {
		return h.ClientCount() == 1 && count.Load() == 1
	}, time.Second, 5*time.Millisecond)

	h.Broadcast(map[string]string{"type": "node_created"})
	assert.Equal(t, `data: {"type":"node_created"}`, readLine(t, r))
}

func TestKeepAlive(t *testing.T) {
	h := New(nil, WithKeepAlive(10*time.Millisecond))
	go h.Run()
	defer h.Stop()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readLine(t, r)
	readLine(t, r)
	assert.Equal(t, ": keepalive", readLine(t, r))
}

func TestUnmarshalableEventIsDropped(t *testing.T) {
	h := New(nil)
	go h.Run()
	defer h.Stop()

	h.Broadcast(make(chan int))
	h.Broadcast("ok")
	assert.Zero(t, h.ClientCount())
}
