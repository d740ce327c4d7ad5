package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/banshee-data/tabletop/internal/monitoring"
)

const (
	// acceptDeadline bounds one Accept call so the loop can re-check ctx.
	acceptDeadline = time.Second

	// probeDeadline bounds one liveness read on a subscriber connection.
	probeDeadline = 500 * time.Millisecond
)

// Acceptor owns the event TCP listener. Every accepted connection is
// subscribed to the hub; a reader goroutine per connection detects the peer
// closing so the subscription is dropped promptly rather than on the next
// failed delivery.
type Acceptor struct {
	address string
	hub     *Hub

	listener *net.TCPListener
	wg       sync.WaitGroup
}

// NewAcceptor creates an acceptor for the given listen address.
func NewAcceptor(address string, h *Hub) *Acceptor {
	return &Acceptor{address: address, hub: h}
}

// Listen binds the event port. Split from Serve so a bind failure surfaces
// before any goroutines start.
func (a *Acceptor) Listen() error {
	addr, err := net.ResolveTCPAddr("tcp", a.address)
	if err != nil {
		return fmt.Errorf("failed to resolve event address %s: %w", a.address, err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.address, err)
	}
	a.listener = listener
	monitoring.Logf("hub: listening for subscribers on %s", listener.Addr())
	return nil
}

// Addr returns the bound listener address. Listen must have succeeded.
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// Serve accepts subscriber connections until ctx is cancelled, then closes
// the listener and every live connection before returning.
func (a *Acceptor) Serve(ctx context.Context) error {
	if a.listener == nil {
		if err := a.Listen(); err != nil {
			return err
		}
	}
	defer a.listener.Close()

	for {
		select {
		case <-ctx.Done():
			a.wg.Wait()
			return ctx.Err()
		default:
		}

		a.listener.SetDeadline(time.Now().Add(acceptDeadline))
		conn, err := a.listener.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			monitoring.Logf("hub: accept error: %v", err)
			continue
		}

		id := a.hub.Subscribe(conn)
		monitoring.Logf("hub: client connected from %s", conn.RemoteAddr())

		a.wg.Add(1)
		go a.watch(ctx, conn, id)
	}
}

// watch blocks on reads from the subscriber connection purely as a liveness
// probe; the protocol is one-way. EOF or a non-timeout error means the peer
// is gone.
func (a *Acceptor) watch(ctx context.Context, conn net.Conn, id string) {
	defer a.wg.Done()
	defer conn.Close()
	defer a.hub.Unsubscribe(id)

	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(probeDeadline))
		_, err := conn.Read(buf)
		if err == nil {
			continue // inbound bytes are ignored
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		if !errors.Is(err, io.EOF) {
			monitoring.Logf("hub: client %s read error: %v", id, err)
		}
		return
	}
}
