package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"
)

var (
	errorLog = log.New(os.Stderr, "ERROR: ", log.LstdFlags)
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)
)

// EnableDebugLogging turns on the package debug logger.
func EnableDebugLogging() {
	debugLog = log.New(os.Stdout, "DEBUG: ", log.LstdFlags)
}

// Server owns the listeners, the session set, and the directory. One
// connection loop runs per accepted connection; the directory serializes all
// shared-state access.
type Server struct {
	config       ServerConfig
	listener     net.Listener
	httpListener net.Listener
	httpServer   *http.Server
	sessions     *SessionManager
	directory    *Directory
	metrics      *Metrics
	startTime    time.Time
	shutdown     chan struct{}
	wg           sync.WaitGroup
}

// NewServer creates a new server instance
func NewServer(config ServerConfig) *Server {
	metrics := NewMetrics()

	return &Server{
		config:    config,
		sessions:  NewSessionManager(metrics),
		directory: NewDirectory(metrics),
		metrics:   metrics,
		shutdown:  make(chan struct{}),
	}
}

// Directory exposes the server's shared state, mainly for tests and tooling.
func (s *Server) Directory() *Directory {
	return s.directory
}

// Start begins accepting TCP connections and, if configured, serves the HTTP
// surface (/metrics, /health, /ws).
func (s *Server) Start() error {
	if s.config.Debug {
		EnableDebugLogging()
	}
	s.startTime = time.Now()

	addr := fmt.Sprintf(":%d", s.config.TCPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	log.Printf("msgp server listening on %s", listener.Addr())

	if s.config.HTTPPort >= 0 {
		httpAddr := fmt.Sprintf(":%d", s.config.HTTPPort)
		httpListener, err := net.Listen("tcp", httpAddr)
		if err != nil {
			s.listener.Close()
			return fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
		}
		s.httpListener = httpListener

		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		mux.HandleFunc("/health", s.healthHandler)
		mux.HandleFunc("/ws", s.handleWebSocket)
		s.httpServer = &http.Server{Handler: mux}

		log.Printf("HTTP server listening on %s (/metrics, /health, /ws)", httpListener.Addr())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errorLog.Printf("HTTP server error: %v", err)
			}
		}()
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the TCP listener address (useful when listening on port 0).
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr returns the HTTP listener address, or nil if disabled.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	log.Println("Graceful shutdown initiated...")

	close(s.shutdown)

	if s.listener != nil {
		s.listener.Close()
	}
	if s.httpServer != nil {
		s.httpServer.Close()
	}

	s.sessions.CloseAll()
	s.wg.Wait()

	log.Println("Graceful shutdown complete")
}

// acceptLoop accepts incoming TCP connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				errorLog.Printf("Accept error: %v", err)
				continue
			}
		}

		go s.handleConnection(conn)
	}
}

// handleConnection sets up a session for an accepted TCP connection.
func (s *Server) handleConnection(conn net.Conn) {
	// Disable Nagle's algorithm for immediate sends
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	sess := s.sessions.CreateSession(NewSafeConn(conn, s.config.WriteTimeout))
	debugLog.Printf("Session %d: TCP connection from %s", sess.ID, sess.RemoteAddr)

	s.connLoop(sess)
}

// connLoop is the per-connection request loop: read one frame, dispatch,
// write the response, until the read side fails. A read error means the peer
// is gone; the session is removed but the directory is untouched (no user
// deregistration exists in the protocol).
func (s *Server) connLoop(sess *Session) {
	defer s.sessions.RemoveSession(sess.ID)

	for {
		raw, err := sess.Conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				debugLog.Printf("Session %d: client disconnected", sess.ID)
			} else {
				select {
				case <-s.shutdown:
				default:
					debugLog.Printf("Session %d: read error: %v", sess.ID, err)
				}
			}
			return
		}

		resp := s.handleRequest(sess, raw)

		if err := sess.Conn.WriteFrame(resp.Encode()); err != nil {
			errorLog.Printf("Session %d: response write failed: %v", sess.ID, err)
			return
		}
	}
}

// healthHandler reports liveness plus a couple of cheap gauges.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","uptime_seconds":%d,"sessions":%d}`,
		int(time.Since(s.startTime).Seconds()), s.sessions.CountSessions())
}
