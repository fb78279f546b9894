package client

import (
	"net"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/groupwire/msgp/pkg/protocol"
)

// Transport carries discrete protocol frames over some connection. Frame
// writes are synchronized; reads are only ever done by the session's
// listener goroutine.
type Transport interface {
	ReadFrame() (string, error)
	WriteFrame(frame string) error
	Close() error
}

// tcpTransport is the primary transport: length-prefixed frames over a
// stream socket.
type tcpTransport struct {
	conn net.Conn
	mu   sync.Mutex // Protects writes to conn
}

// DialTCP connects to a server over TCP. addr is host:port.
func DialTCP(addr string) (Transport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}
	return &tcpTransport{conn: conn}, nil
}

// NewTCPTransport wraps an existing connection. Mainly for tests that drive
// a fake server over net.Pipe.
func NewTCPTransport(conn net.Conn) Transport {
	return &tcpTransport{conn: conn}
}

func (t *tcpTransport) ReadFrame() (string, error) {
	return protocol.ReadFrame(t.conn)
}

func (t *tcpTransport) WriteFrame(frame string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return protocol.WriteFrame(t.conn, frame)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// wsTransport carries one frame per WebSocket text message, mirroring the
// server's /ws bridge.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex // Protects writes to conn
}

// DialWebSocket connects through the server's WebSocket bridge. url is a
// full ws:// or wss:// URL, e.g. "ws://server:8080/ws".
func DialWebSocket(url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) ReadFrame() (string, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return string(data), nil
	}
}

func (t *wsTransport) WriteFrame(frame string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
