package hub

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tabletop/internal/event"
)

func startTestAcceptor(t *testing.T) (*Hub, *Acceptor, context.CancelFunc) {
	t.Helper()

	h := New(HubConfig{WriteTimeout: time.Second})
	a := NewAcceptor("127.0.0.1:0", h)
	require.NoError(t, a.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Error("acceptor did not stop after cancellation")
		}
	})
	return h, a, cancel
}

func readEventLine(t *testing.T, r *bufio.Reader) map[string]any {
	t.Helper()
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(line, &m))
	return m
}

func TestAcceptorDeliversToMultipleClients(t *testing.T) {
	t.Parallel()

	h, a, _ := startTestAcceptor(t)

	dial := func() (net.Conn, *bufio.Reader) {
		conn, err := net.Dial("tcp", a.Addr().String())
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn, bufio.NewReader(conn)
	}

	_, r1 := dial()
	_, r2 := dial()

	require.Eventually(t, func() bool { return h.Count() == 2 },
		2*time.Second, 10*time.Millisecond, "both clients should be subscribed")

	require.NoError(t, h.Publish(event.NewWheelOpen(0.3, 0.7)))

	for _, r := range []*bufio.Reader{r1, r2} {
		m := readEventLine(t, r)
		assert.Equal(t, event.TypeWheelOpen, m["type"])
		assert.Equal(t, 0.3, m["x"])
	}
}

func TestAcceptorDropsDisconnectedClients(t *testing.T) {
	t.Parallel()

	h, a, _ := startTestAcceptor(t)

	conn, err := net.Dial("tcp", a.Addr().String())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Count() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()

	// The liveness probe notices the peer hanging up.
	require.Eventually(t, func() bool { return h.Count() == 0 },
		5*time.Second, 10*time.Millisecond, "closed client should be unsubscribed")
}

func TestAcceptorListenFailureIsReported(t *testing.T) {
	t.Parallel()

	first := NewAcceptor("127.0.0.1:0", New(HubConfig{}))
	require.NoError(t, first.Listen())
	t.Cleanup(func() { first.listener.Close() })

	second := NewAcceptor(first.Addr().String(), New(HubConfig{}))
	err := second.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
