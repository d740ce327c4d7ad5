package gesture

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/tabletop/internal/monitoring"
)

// Frame is one per-camera-frame sample from the camera/ML collaborator: a
// normalized hand x-position and a fist/closed-palm signal. HandPresent is
// false when no hand was found in the frame.
type Frame struct {
	X           float64 `json:"x"`
	Fist        bool    `json:"fist"`
	HandPresent bool    `json:"present"`
}

// FrameSource supplies hand frames. Next blocks until a frame arrives, the
// context is cancelled, or the source fails; the pipeline retries failures
// with a fixed backoff.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// UDPFrameSource receives hand frames from the collaborator process, one
// JSON record per datagram. The socket is bound lazily on the first Next so
// collaborator restarts flow through the pipeline's retry backoff rather
// than failing startup.
type UDPFrameSource struct {
	address string
	conn    *net.UDPConn
}

// NewUDPFrameSource creates a source listening on address.
func NewUDPFrameSource(address string) *UDPFrameSource {
	return &UDPFrameSource{address: address}
}

// Next returns the next well-formed hand frame. Malformed datagrams are
// logged and skipped; socket errors close the socket and surface to the
// caller so the next call rebinds.
func (s *UDPFrameSource) Next(ctx context.Context) (Frame, error) {
	if s.conn == nil {
		addr, err := net.ResolveUDPAddr("udp", s.address)
		if err != nil {
			return Frame{}, fmt.Errorf("failed to resolve UDP address: %w", err)
		}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return Frame{}, fmt.Errorf("failed to listen on UDP address: %w", err)
		}
		s.conn = conn
		monitoring.Logf("gesture: hand-frame listener started on %s", s.address)
	}

	buffer := make([]byte, 512)
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			s.conn.Close()
			s.conn = nil
			return Frame{}, fmt.Errorf("hand-frame read failed: %w", err)
		}

		var frame Frame
		if err := json.Unmarshal(buffer[:n], &frame); err != nil {
			monitoring.Logf("gesture: dropping malformed hand frame from %v: %v", from, err)
			continue
		}
		return frame, nil
	}
}

// Close releases the socket if bound.
func (s *UDPFrameSource) Close() error {
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
