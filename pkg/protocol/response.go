package protocol

import (
	"errors"
	"strings"
)

// Status is a protocol-level reply code. These are normal control flow, not
// Go errors: EMPTY and ERROR travel back to the requester as frames.
type Status int

const (
	StatusOK       Status = 200
	StatusNoResult Status = 201
	StatusError    Status = 400
)

var ErrMalformedResponse = errors.New("malformed response frame")

// Response is a status plus an optional body, produced per request and never
// persisted.
type Response struct {
	Status Status
	Body   string
}

// OK returns a 200 response carrying body.
func OK(body string) Response { return Response{Status: StatusOK, Body: body} }

// NoResult returns a 201 response.
func NoResult() Response { return Response{Status: StatusNoResult} }

// Error returns a 400 response.
func Error() Response { return Response{Status: StatusError} }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "200 OK"
	case StatusNoResult:
		return "201 No result"
	case StatusError:
		return "400 Error"
	default:
		return "400 Error"
	}
}

// Encode renders the response frame: "msgp 200 OK" optionally followed by
// a newline and the body. EMPTY and ERROR responses never carry a body.
func (r Response) Encode() string {
	line := Marker + " " + r.Status.String()
	if r.Status == StatusOK && r.Body != "" {
		return line + "\n" + r.Body
	}
	return line
}

// ParseResponse decodes a response frame back into a Response.
func ParseResponse(frame string) (Response, error) {
	head := frame
	body := ""
	if idx := strings.IndexByte(frame, '\n'); idx >= 0 {
		head = frame[:idx]
		body = frame[idx+1:]
	}

	switch {
	case strings.HasPrefix(head, Marker+" 200"):
		return Response{Status: StatusOK, Body: body}, nil
	case strings.HasPrefix(head, Marker+" 201"):
		return Response{Status: StatusNoResult}, nil
	case strings.HasPrefix(head, Marker+" 400"):
		return Response{Status: StatusError}, nil
	default:
		return Response{}, ErrMalformedResponse
	}
}
