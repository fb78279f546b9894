package server

import (
	"net"
	"sync"
	"sync/atomic"
)

// frameConn is a connection that carries discrete protocol frames. SafeConn
// implements it for TCP; wsConn implements it for the WebSocket bridge.
type frameConn interface {
	ReadFrame() (string, error)
	WriteFrame(frame string) error
	Close() error
	RemoteAddr() net.Addr
}

// Session represents an active client connection.
type Session struct {
	ID         uint64
	Conn       frameConn
	RemoteAddr string
}

// SessionManager manages all active sessions
type SessionManager struct {
	sessions map[uint64]*Session
	nextID   uint64
	mu       sync.RWMutex
	metrics  *Metrics
}

// NewSessionManager creates a new session manager
func NewSessionManager(metrics *Metrics) *SessionManager {
	return &SessionManager{
		sessions: make(map[uint64]*Session),
		nextID:   1,
		metrics:  metrics,
	}
}

// CreateSession registers a new session for a connection.
func (sm *SessionManager) CreateSession(conn frameConn) *Session {
	sessionID := atomic.AddUint64(&sm.nextID, 1) - 1

	sess := &Session{
		ID:         sessionID,
		Conn:       conn,
		RemoteAddr: conn.RemoteAddr().String(),
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = sess
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(sessionCount)
		sm.metrics.RecordSessionCreated()
	}

	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(sessionID uint64) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, ok := sm.sessions[sessionID]
	return sess, ok
}

// RemoveSession removes a session and closes its connection. The username
// bound to this connection's channel stays in the directory; there is no
// deregistration in the protocol, so the binding dangles until the name is
// rebound (delivery attempts to it fail and are logged).
func (sm *SessionManager) RemoveSession(sessionID uint64) {
	sm.mu.Lock()
	sess, ok := sm.sessions[sessionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, sessionID)
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(sessionCount)
	}

	sess.Conn.Close()
}

// CountSessions returns the number of active sessions
func (sm *SessionManager) CountSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.sessions)
}

// CloseAll closes all sessions
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, sess := range sm.sessions {
		sess.Conn.Close()
	}

	sm.sessions = make(map[uint64]*Session)
}
