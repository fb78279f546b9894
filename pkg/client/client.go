// Package client implements the msgp session multiplexer: one connection
// carrying both synchronous request/response traffic and asynchronous pushed
// messages. A background listener tells the two apart and routes each to the
// right consumer.
package client

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/groupwire/msgp/pkg/protocol"
)

var (
	// ErrResponseTimeout means the server never answered the pending request.
	ErrResponseTimeout = errors.New("timed out waiting for server response")
	// ErrClosed means the session was closed while a request was in flight.
	ErrClosed = errors.New("session closed")
	// ErrUnknownGroup is the typed form of a 400 reply to a group query.
	ErrUnknownGroup = errors.New("group does not exist")
)

// DefaultResponseTimeout bounds how long a request waits for its response.
const DefaultResponseTimeout = 10 * time.Second

// Session owns exactly one connection to a msgp server. Requests are
// single-outstanding: the request mutex serializes callers, and the listener
// resolves each request through a one-slot mailbox. Pushed messages go to
// the Messages channel, except the session's own echoes, which are
// suppressed.
type Session struct {
	username  string
	transport Transport

	responses chan string // one-slot mailbox for the pending request
	messages  chan protocol.Message
	errs      chan error

	reqMu   sync.Mutex // One outstanding request at a time
	timeout time.Duration
	logger  *log.Logger

	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to a server over TCP and starts the session listener.
func Dial(username, addr string) (*Session, error) {
	transport, err := DialTCP(addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return NewSession(username, transport), nil
}

// DialWS connects through the server's WebSocket bridge instead of raw TCP.
func DialWS(username, url string) (*Session, error) {
	transport, err := DialWebSocket(url)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}
	return NewSession(username, transport), nil
}

// NewSession wraps an established transport and starts the listener.
func NewSession(username string, transport Transport) *Session {
	s := &Session{
		username:  username,
		transport: transport,
		responses: make(chan string, 1),
		messages:  make(chan protocol.Message, 100),
		errs:      make(chan error, 1),
		timeout:   DefaultResponseTimeout,
		shutdown:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.listen()

	return s
}

// SetLogger sets a logger for debugging session events
func (s *Session) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetResponseTimeout overrides the per-request response timeout.
func (s *Session) SetResponseTimeout(d time.Duration) {
	s.timeout = d
}

// Username returns the name this session registered with.
func (s *Session) Username() string {
	return s.username
}

// Messages returns the channel of pushed messages from other users.
func (s *Session) Messages() <-chan protocol.Message {
	return s.messages
}

// Errors returns the channel carrying the transport error that ended the
// session, if any.
func (s *Session) Errors() <-chan error {
	return s.errs
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// listen is the background demultiplexer: message envelopes go to the push
// channel (minus our own echoes), everything else resolves the pending
// request.
func (s *Session) listen() {
	defer s.wg.Done()

	for {
		frame, err := s.transport.ReadFrame()
		if err != nil {
			select {
			case <-s.shutdown:
			default:
				s.logf("read error: %v", err)
				s.errs <- fmt.Errorf("connection lost: %w", err)
			}
			return
		}

		if protocol.IsMessageFrame(frame) {
			msg := protocol.DecodeMessage(frame)
			if msg.From == s.username {
				continue
			}
			select {
			case s.messages <- msg:
			case <-s.shutdown:
				return
			default:
				// The consumer stopped draining pushes; dropping beats
				// wedging the listener and starving request responses.
				s.logf("push channel full, dropping message from %q", msg.From)
			}
			continue
		}

		select {
		case s.responses <- frame:
		default:
			s.logf("response with no pending request dropped: %q", frame)
		}
	}
}

// request writes one frame and waits for its response. Single-outstanding by
// construction; there is no request identifier in the protocol, so a second
// concurrent request would corrupt correlation.
func (s *Session) request(frame string) (protocol.Response, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	// Clear any stale response left by a previously timed-out request.
	select {
	case <-s.responses:
	default:
	}

	if err := s.transport.WriteFrame(frame); err != nil {
		return protocol.Response{}, fmt.Errorf("request write failed: %w", err)
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case raw := <-s.responses:
		return protocol.ParseResponse(raw)
	case <-timer.C:
		return protocol.Response{}, ErrResponseTimeout
	case <-s.shutdown:
		return protocol.Response{}, ErrClosed
	}
}

// AddUser registers this session's username with the server, binding it to
// this connection.
func (s *Session) AddUser() (protocol.Response, error) {
	return s.request(protocol.EncodeCommand(protocol.VerbAddUser, s.username))
}

// Join adds this user to a group. StatusNoResult means already a member.
func (s *Session) Join(group string) (protocol.Response, error) {
	return s.request(protocol.EncodeCommand(protocol.VerbJoin, s.username, group))
}

// Leave removes this user from a group. StatusNoResult means not a member;
// StatusError means the group does not exist.
func (s *Session) Leave(group string) (protocol.Response, error) {
	return s.request(protocol.EncodeCommand(protocol.VerbLeave, s.username, group))
}

// Groups lists all group names. A nil slice means no groups exist.
func (s *Session) Groups() ([]string, error) {
	resp, err := s.request(protocol.EncodeCommand(protocol.VerbGroups))
	if err != nil {
		return nil, err
	}
	return splitList(resp)
}

// Users lists a group's members. A nil slice means the group is empty.
func (s *Session) Users(group string) ([]string, error) {
	resp, err := s.request(protocol.EncodeCommand(protocol.VerbUsers, group))
	if err != nil {
		return nil, err
	}
	return splitList(resp)
}

// History fetches and decodes a group's stored messages in arrival order. A
// nil slice means the history is empty.
func (s *Session) History(group string) ([]protocol.Message, error) {
	resp, err := s.request(protocol.EncodeCommand(protocol.VerbHistory, group))
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case protocol.StatusError:
		return nil, ErrUnknownGroup
	case protocol.StatusNoResult:
		return nil, nil
	}

	entries := protocol.SplitHistory(resp.Body)
	history := make([]protocol.Message, 0, len(entries))
	for _, entry := range entries {
		history = append(history, protocol.DecodeMessage(entry))
	}
	return history, nil
}

// Send encodes a message envelope from raw user tokens (recipients carry a
// @ or # sigil, everything else is body) and sends it. StatusError means one
// or more recipients do not exist and nothing was delivered.
func (s *Session) Send(tokens []string) (protocol.Response, error) {
	return s.request(protocol.EncodeSend(s.username, tokens))
}

// Close shuts the session down and waits for the listener to exit.
// Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.shutdown)
		s.transport.Close()
		s.wg.Wait()
		close(s.messages)
		close(s.errs)
	})
}

func splitList(resp protocol.Response) ([]string, error) {
	switch resp.Status {
	case protocol.StatusError:
		return nil, ErrUnknownGroup
	case protocol.StatusNoResult:
		return nil, nil
	}
	if resp.Body == "" {
		return nil, nil
	}
	return strings.Split(resp.Body, "\n"), nil
}
