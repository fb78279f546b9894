package server

import (
	"github.com/groupwire/msgp/pkg/protocol"
)

// handleRequest classifies one inbound frame and applies it to the
// directory. Protocol-level failures (bad group, missing args) come back as
// ERROR/EMPTY responses, never as Go errors: they are normal control flow.
func (s *Server) handleRequest(sess *Session, raw string) protocol.Response {
	req := protocol.ParseRequest(raw)
	debugLog.Printf("Session %d ← %s", sess.ID, req.Verb)

	var resp protocol.Response
	switch req.Verb {
	case protocol.VerbJoin:
		if len(req.Args) < 2 {
			resp = protocol.Error()
			break
		}
		resp = s.directory.Join(req.Args[0], req.Args[1], sess.Conn)

	case protocol.VerbLeave:
		if len(req.Args) < 2 {
			resp = protocol.Error()
			break
		}
		resp = s.directory.Leave(req.Args[0], req.Args[1])

	case protocol.VerbGroups:
		resp = s.directory.Groups()

	case protocol.VerbUsers:
		if len(req.Args) < 1 {
			resp = protocol.Error()
			break
		}
		resp = s.directory.Users(req.Args[0])

	case protocol.VerbHistory:
		if len(req.Args) < 1 {
			resp = protocol.Error()
			break
		}
		resp = s.directory.History(req.Args[0])

	case protocol.VerbAddUser:
		if len(req.Args) < 1 {
			resp = protocol.Error()
			break
		}
		resp = s.directory.AddUser(req.Args[0], sess.Conn)

	default:
		// Anything without a recognized command verb is a message envelope.
		resp = s.directory.Send(req.Raw)
	}

	if s.metrics != nil {
		s.metrics.RecordRequest(req.Verb, resp.Status)
	}
	return resp
}
