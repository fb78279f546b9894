package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"
)

const (
	// MaxFrameSize is the maximum allowed frame size (1 MB)
	MaxFrameSize = 1024 * 1024

	// DefaultPort is the port the msgp protocol listens on by default
	DefaultPort = 4311
)

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size (1 MB)")
	ErrInvalidUTF8   = errors.New("frame is not valid UTF-8")
)

// WriteFrame writes one frame to the writer.
// Format: [Length (4 bytes, big-endian)][UTF-8 bytes (N)]
//
// The transport guarantees frame boundaries: every logical protocol message
// (command, response, or message envelope) travels as exactly one frame.
func WriteFrame(w io.Writer, frame string) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(frame)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, frame); err != nil {
		return err
	}

	// Flush if the writer supports it (e.g., *bufio.Writer)
	type flusher interface {
		Flush() error
	}
	if fl, ok := w.(flusher); ok {
		return fl.Flush()
	}

	return nil
}

// ReadFrame reads one frame from the reader.
func ReadFrame(r io.Reader) (string, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return "", ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		// A frame truncated mid-payload is a transport failure, not EOF
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}

	if !utf8.Valid(payload) {
		return "", ErrInvalidUTF8
	}

	return string(payload), nil
}
