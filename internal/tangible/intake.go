package tangible

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/tabletop/internal/monitoring"
)

// UDPIntake receives canonical tracking records from the tracking
// collaborator, one JSON object per datagram, and feeds them to a Handler.
// Wire-format field aliases are resolved here, once, at the boundary; the
// core only ever sees the canonical ObjectEvent shape.
type UDPIntake struct {
	address string
	handler Handler
	conn    *net.UDPConn
}

// wireRecord is the on-the-wire tracking record. Position fields accept the
// aliases different tracker builds emit (x/xpos, y/ypos).
type wireRecord struct {
	Event     string   `json:"event"`
	SymbolID  *int     `json:"symbol_id"`
	SessionID *int64   `json:"session_id"`
	X         *float64 `json:"x"`
	XPos      *float64 `json:"xpos"`
	Y         *float64 `json:"y"`
	YPos      *float64 `json:"ypos"`
	Angle     *float64 `json:"angle"`
}

// NewUDPIntake creates an intake listening on address and delivering events
// to handler.
func NewUDPIntake(address string, handler Handler) *UDPIntake {
	return &UDPIntake{address: address, handler: handler}
}

// Start binds the UDP socket and processes datagrams until the context is
// cancelled. Malformed datagrams are logged and dropped; they never reach
// the handler.
func (in *UDPIntake) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", in.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	in.conn = conn
	defer conn.Close()

	monitoring.Logf("intake: tracking listener started on %s", in.address)

	buffer := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("intake: stopping, context cancelled")
			return ctx.Err()
		default:
			// Bounded read so context cancellation is observed promptly.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, from, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("intake: UDP read error: %v", err)
				continue
			}

			ev, err := decodeRecord(buffer[:n])
			if err != nil {
				monitoring.Logf("intake: dropping datagram from %v: %v", from, err)
				continue
			}
			in.handler.Handle(ev)
		}
	}
}

// decodeRecord resolves a wire datagram into the canonical event shape.
func decodeRecord(data []byte) (ObjectEvent, error) {
	var rec wireRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ObjectEvent{}, fmt.Errorf("malformed record: %w", err)
	}

	kind := EventKind(rec.Event)
	if !kind.Valid() {
		return ObjectEvent{}, fmt.Errorf("unknown event kind %q", rec.Event)
	}
	if rec.SymbolID == nil {
		return ObjectEvent{}, fmt.Errorf("record missing symbol_id")
	}
	if rec.SessionID == nil {
		return ObjectEvent{}, fmt.Errorf("record missing session_id")
	}

	obj := Object{
		SymbolID:  *rec.SymbolID,
		SessionID: *rec.SessionID,
		X:         coalesce(rec.X, rec.XPos, 0.5),
		Y:         coalesce(rec.Y, rec.YPos, 0.5),
		Angle:     coalesce(rec.Angle, nil, 0),
	}
	return ObjectEvent{Kind: kind, Object: obj}, nil
}

// coalesce picks the first present value, falling back to def.
func coalesce(primary, alias *float64, def float64) float64 {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return def
}
