package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcaster(opts ...Option) *Broadcaster {
	nop := zerolog.Nop()
	return NewBroadcaster(&nop, opts...)
}

func streams(b *Broadcaster, n int) func() bool {
	return func() bool { return b.ClientCount() == n }
}

func TestEvent_WriteTo(t *testing.T) {
	var sb strings.Builder
	_, err := Event{Event: "followups.saved", ID: "7", Data: []string{"5501-V"}}.WriteTo(&sb)
	require.NoError(t, err)
	assert.Equal(t, "event: followups.saved\nid: 7\ndata: [\"5501-V\"]\n\n", sb.String())

	sb.Reset()
	_, err = Event{}.WriteTo(&sb)
	require.NoError(t, err)
	assert.Equal(t, "data: null\n\n", sb.String())

	_, err = Event{Data: make(chan int)}.WriteTo(&sb)
	assert.Error(t, err)
}

func TestBroadcaster_Stream(t *testing.T) {
	b := newBroadcaster()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go b.Run(ctx)

	srv := httptest.NewServer(b)
	defer srv.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, streams(b, 1), 2*time.Second, 5*time.Millisecond)
	b.Broadcast(Event{Event: "followups.saved", ID: "1", Data: map[string]any{"count": 2}})

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 7 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, strings.TrimRight(line, "\n"))
	}
	stream := strings.Join(lines, "\n")
	assert.Contains(t, stream, "event: connected")
	assert.Contains(t, stream, "event: followups.saved\nid: 1\ndata: {\"count\":2}")
}

func TestBroadcaster_KeepAlive(t *testing.T) {
	b := newBroadcaster(WithKeepAlive(10 * time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go b.Run(ctx)

	srv := httptest.NewServer(b)
	defer srv.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, ": keep-alive") {
			return
		}
	}
}

func TestBroadcaster_Shutdown(t *testing.T) {
	b := newBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		close(done)
	}()

	require.Eventually(t, streams(b, 1), 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end on shutdown")
	}
	assert.Zero(t, b.ClientCount())
}

func TestBroadcaster_BroadcastNeverBlocks(t *testing.T) {
	b := newBroadcaster()
	for range queueSize + 5 {
		b.Broadcast(Event{Event: "x"})
	}
	assert.Equal(t, int64(5), b.Skipped())
}
