package protocol

import "strings"

// SendMarker opens every message envelope. Frames carrying it are pushed
// messages on the client side and send commands on the server side.
const SendMarker = Marker + " " + VerbSend

const (
	fromPrefix = "from: "
	toPrefix   = "to: "
)

// Message is an immutable message record. To holds the raw recipient tokens
// ("@name" for a user, "#name" for a group); tokens are validated against the
// directory at send time, not here.
type Message struct {
	From string
	To   []string
	Body string
}

// IsMessageFrame reports whether a frame is a message envelope rather than a
// command or response.
func IsMessageFrame(frame string) bool {
	return strings.HasPrefix(frame, SendMarker)
}

// EncodeSend builds a message envelope from whitespace-delimited user tokens.
// Tokens beginning with @ or # become recipients; every other token (minus a
// leading "send") is space-joined into the body, trailing space included.
func EncodeSend(sender string, tokens []string) string {
	var to []string
	var body strings.Builder

	for _, tok := range tokens {
		switch {
		case tok == VerbSend:
		case strings.HasPrefix(tok, "@"), strings.HasPrefix(tok, "#"):
			to = append(to, tok)
		default:
			body.WriteString(tok)
			body.WriteString(" ")
		}
	}

	return Message{From: sender, To: to, Body: body.String()}.Encode()
}

// Encode renders the envelope:
//
//	msgp send
//	from: <sender>
//	to: <token>        (one line per recipient)
//	<blank line>
//	<body>
//	<blank line>
func (m Message) Encode() string {
	var b strings.Builder
	b.WriteString(SendMarker)
	b.WriteString("\n")
	b.WriteString(fromPrefix)
	b.WriteString(m.From)
	b.WriteString("\n")
	for _, to := range m.To {
		b.WriteString(toPrefix)
		b.WriteString(to)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.Body)
	b.WriteString("\n\n")
	return b.String()
}

// DecodeMessage recovers sender and body from an envelope. Recipient tokens
// are also collected, though only the server needs them.
func DecodeMessage(frame string) Message {
	var m Message
	for _, line := range strings.Split(frame, "\n") {
		switch {
		case strings.HasPrefix(line, fromPrefix):
			m.From = line[len(fromPrefix):]
		case strings.HasPrefix(line, toPrefix):
			m.To = append(m.To, line[len(toPrefix):])
		case line == "" || strings.HasPrefix(line, SendMarker):
		default:
			m.Body = line
		}
	}
	return m
}

// RecipientTokens extracts the raw "to:" tokens from an envelope without
// decoding the rest of it.
func RecipientTokens(frame string) []string {
	var tokens []string
	for _, line := range strings.Split(frame, "\n") {
		if len(line) > len(toPrefix) && strings.HasPrefix(line, toPrefix) {
			tokens = append(tokens, line[len(toPrefix):])
		}
	}
	return tokens
}

// SplitHistory splits a history response body back into the stored raw
// envelopes. Stored entries are concatenated, so every entry after the first
// loses its marker to the split and gets it re-prepended here.
func SplitHistory(body string) []string {
	parts := strings.Split(body, "\n\n"+SendMarker)
	entries := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = SendMarker + part
		}
		entries = append(entries, part)
	}
	return entries
}
