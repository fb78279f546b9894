package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// The WebSocket bridge carries the same text protocol for clients that can't
// open a raw TCP connection: each WebSocket text message is exactly one
// frame, so the length prefix used on TCP is unnecessary here.

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a websocket.Conn to the frameConn interface, with the same
// write synchronization and bounded write deadline as SafeConn.
type wsConn struct {
	conn         *websocket.Conn
	mu           sync.Mutex // Protects writes to conn
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (wc *wsConn) ReadFrame() (string, error) {
	for {
		msgType, data, err := wc.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		// Control frames are handled by gorilla; skip anything that isn't a
		// text message carrying a protocol frame.
		if msgType != websocket.TextMessage {
			continue
		}
		return string(data), nil
	}
}

func (wc *wsConn) WriteFrame(frame string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if wc.writeTimeout > 0 {
		if err := wc.conn.SetWriteDeadline(time.Now().Add(wc.writeTimeout)); err != nil {
			return err
		}
	}
	return wc.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (wc *wsConn) Close() error {
	return wc.conn.Close()
}

func (wc *wsConn) RemoteAddr() net.Addr {
	return wc.conn.RemoteAddr()
}

// handleWebSocket upgrades an HTTP request and runs the standard connection
// loop over the bridge.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		errorLog.Printf("WebSocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	sess := s.sessions.CreateSession(newWSConn(conn, s.config.WriteTimeout))
	debugLog.Printf("Session %d: WebSocket connection from %s", sess.ID, sess.RemoteAddr)

	go s.connLoop(sess)
}
