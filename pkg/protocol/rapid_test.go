package protocol

import (
	"bytes"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// TestFrameRoundTrip tests that any UTF-8 string survives the frame codec.
func TestFrameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frame := rapid.StringN(-1, -1, 4096).Draw(t, "frame")

		var buf bytes.Buffer
		if err := WriteFrame(&buf, frame); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if got != frame {
			t.Fatalf("round-trip mismatch: got %q, want %q", got, frame)
		}
	})
}

// TestSendRoundTrip tests that envelopes built from arbitrary word tokens
// decode back to the same sender, recipients, and body.
func TestSendRoundTrip(t *testing.T) {
	// "send" itself is stripped by EncodeSend, so keep it out of the token pool
	wordGen := rapid.StringMatching(`[a-zA-Z0-9_-]{1,12}`).
		Filter(func(s string) bool { return s != VerbSend })

	rapid.Check(t, func(t *rapid.T) {
		sender := wordGen.Draw(t, "sender")
		names := rapid.SliceOfN(wordGen, 0, 5).Draw(t, "recipients")
		words := rapid.SliceOfN(wordGen, 0, 8).Draw(t, "words")

		tokens := make([]string, 0, len(names)+len(words))
		wantTo := make([]string, 0, len(names))
		for i, name := range names {
			sigil := "@"
			if i%2 == 1 {
				sigil = "#"
			}
			tokens = append(tokens, sigil+name)
			wantTo = append(wantTo, sigil+name)
		}
		tokens = append(tokens, words...)

		frame := EncodeSend(sender, tokens)
		msg := DecodeMessage(frame)

		if msg.From != sender {
			t.Fatalf("sender mismatch: got %q, want %q", msg.From, sender)
		}

		wantBody := ""
		if len(words) > 0 {
			wantBody = strings.Join(words, " ") + " "
		}
		if msg.Body != wantBody {
			t.Fatalf("body mismatch: got %q, want %q", msg.Body, wantBody)
		}

		gotTo := RecipientTokens(frame)
		if len(gotTo) != len(wantTo) {
			t.Fatalf("recipient count mismatch: got %v, want %v", gotTo, wantTo)
		}
		for i := range wantTo {
			if gotTo[i] != wantTo[i] {
				t.Fatalf("recipient %d mismatch: got %q, want %q", i, gotTo[i], wantTo[i])
			}
		}
	})
}

// TestHistorySplitRoundTrip tests that any sequence of stored envelopes can
// be split back out of a concatenated history body.
func TestHistorySplitRoundTrip(t *testing.T) {
	wordGen := rapid.StringMatching(`[a-zA-Z0-9_-]{1,12}`).
		Filter(func(s string) bool { return s != VerbSend })

	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 6).Draw(t, "count")

		var history strings.Builder
		senders := make([]string, count)
		bodies := make([]string, count)
		for i := 0; i < count; i++ {
			senders[i] = wordGen.Draw(t, "sender")
			words := rapid.SliceOfN(wordGen, 1, 4).Draw(t, "words")
			frame := EncodeSend(senders[i], append([]string{"#g"}, words...))
			bodies[i] = strings.Join(words, " ") + " "
			history.WriteString(frame)
		}

		entries := SplitHistory(history.String())
		if len(entries) != count {
			t.Fatalf("entry count mismatch: got %d, want %d", len(entries), count)
		}
		for i, entry := range entries {
			msg := DecodeMessage(entry)
			if msg.From != senders[i] {
				t.Fatalf("entry %d sender mismatch: got %q, want %q", i, msg.From, senders[i])
			}
			if msg.Body != bodies[i] {
				t.Fatalf("entry %d body mismatch: got %q, want %q", i, msg.Body, bodies[i])
			}
		}
	})
}
