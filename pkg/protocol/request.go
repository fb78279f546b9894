package protocol

import "strings"

// Marker is the protocol tag every frame starts with.
const Marker = "msgp"

// Command verbs (Client → Server)
const (
	VerbJoin    = "join"
	VerbLeave   = "leave"
	VerbGroups  = "groups"
	VerbUsers   = "users"
	VerbHistory = "history"
	VerbAddUser = "addUser"
	VerbSend    = "send"
)

// Request is a classified inbound frame. For VerbSend the multi-line envelope
// stays in Raw; for everything else Args holds the positional arguments.
type Request struct {
	Verb string
	Args []string
	Raw  string
}

// ParseRequest classifies a frame by its second whitespace token. Frames
// without a recognized command verb are treated as send, matching the
// server's dispatch rule: anything that is not a known command is a message
// envelope.
func ParseRequest(frame string) Request {
	fields := strings.Fields(frame)
	if len(fields) < 2 {
		return Request{Verb: VerbSend, Raw: frame}
	}

	switch fields[1] {
	case VerbJoin, VerbLeave, VerbGroups, VerbUsers, VerbHistory, VerbAddUser:
		return Request{Verb: fields[1], Args: fields[2:], Raw: frame}
	default:
		return Request{Verb: VerbSend, Raw: frame}
	}
}

// EncodeCommand builds a single-line command frame: "msgp <verb> <args...>".
func EncodeCommand(verb string, args ...string) string {
	parts := append([]string{Marker, verb}, args...)
	return strings.Join(parts, " ")
}
