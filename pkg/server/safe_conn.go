package server

import (
	"net"
	"sync"
	"time"

	"github.com/groupwire/msgp/pkg/protocol"
)

// SafeConn wraps a net.Conn with automatic write synchronization to prevent
// concurrent writes from corrupting wire frames.
//
// Two paths write to the same connection: the connection loop answering the
// session's own requests, and send fan-out pushing messages from other
// sessions. Without synchronization their frame bytes interleave on the wire.
//
// Writes carry a bounded deadline so a slow or dead recipient cannot stall
// fan-out for everyone else.
type SafeConn struct {
	conn         net.Conn
	mu           sync.Mutex // Protects writes to conn
	writeTimeout time.Duration
}

// NewSafeConn wraps a net.Conn with write synchronization. A writeTimeout of
// zero disables write deadlines.
func NewSafeConn(conn net.Conn, writeTimeout time.Duration) *SafeConn {
	return &SafeConn{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// WriteFrame encodes and sends one frame with write synchronization. This is
// the only way to write to the connection; the raw conn is private.
func (sc *SafeConn) WriteFrame(frame string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.writeTimeout > 0 {
		if err := sc.conn.SetWriteDeadline(time.Now().Add(sc.writeTimeout)); err != nil {
			return err
		}
	}
	return protocol.WriteFrame(sc.conn, frame)
}

// ReadFrame reads one frame from the connection. Reads don't need write
// synchronization.
func (sc *SafeConn) ReadFrame() (string, error) {
	return protocol.ReadFrame(sc.conn)
}

// Close closes the underlying connection
func (sc *SafeConn) Close() error {
	return sc.conn.Close()
}

// RemoteAddr returns the remote network address
func (sc *SafeConn) RemoteAddr() net.Addr {
	return sc.conn.RemoteAddr()
}
