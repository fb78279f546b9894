package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantVerb string
		wantArgs []string
	}{
		{
			name:     "join",
			frame:    "msgp join alice team",
			wantVerb: VerbJoin,
			wantArgs: []string{"alice", "team"},
		},
		{
			name:     "leave",
			frame:    "msgp leave alice team",
			wantVerb: VerbLeave,
			wantArgs: []string{"alice", "team"},
		},
		{
			name:     "groups takes no args",
			frame:    "msgp groups",
			wantVerb: VerbGroups,
			wantArgs: []string{},
		},
		{
			name:     "users",
			frame:    "msgp users team",
			wantVerb: VerbUsers,
			wantArgs: []string{"team"},
		},
		{
			name:     "history",
			frame:    "msgp history team",
			wantVerb: VerbHistory,
			wantArgs: []string{"team"},
		},
		{
			name:     "addUser is case-sensitive",
			frame:    "msgp addUser alice",
			wantVerb: VerbAddUser,
			wantArgs: []string{"alice"},
		},
		{
			name:     "message envelope defaults to send",
			frame:    "msgp send\nfrom: alice\nto: #team\n\nhi \n\n",
			wantVerb: VerbSend,
		},
		{
			name:     "unknown verb defaults to send",
			frame:    "msgp adduser alice",
			wantVerb: VerbSend,
		},
		{
			name:     "bare marker defaults to send",
			frame:    "msgp",
			wantVerb: VerbSend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ParseRequest(tt.frame)
			assert.Equal(t, tt.wantVerb, req.Verb)
			if tt.wantArgs != nil {
				assert.Equal(t, tt.wantArgs, req.Args)
			}
			assert.Equal(t, tt.frame, req.Raw)
		})
	}
}

func TestEncodeCommand(t *testing.T) {
	assert.Equal(t, "msgp join alice team", EncodeCommand(VerbJoin, "alice", "team"))
	assert.Equal(t, "msgp groups", EncodeCommand(VerbGroups))
	assert.Equal(t, "msgp addUser bob", EncodeCommand(VerbAddUser, "bob"))
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		resp      Response
		wantFrame string
	}{
		{
			name:      "ok without body",
			resp:      OK(""),
			wantFrame: "msgp 200 OK",
		},
		{
			name:      "ok with list body",
			resp:      OK("alice\nbob"),
			wantFrame: "msgp 200 OK\nalice\nbob",
		},
		{
			name:      "no result",
			resp:      NoResult(),
			wantFrame: "msgp 201 No result",
		},
		{
			name:      "error",
			resp:      Error(),
			wantFrame: "msgp 400 Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := tt.resp.Encode()
			assert.Equal(t, tt.wantFrame, frame)

			parsed, err := ParseResponse(frame)
			require.NoError(t, err)
			assert.Equal(t, tt.resp, parsed)
		})
	}
}

func TestParseResponseMalformed(t *testing.T) {
	_, err := ParseResponse("http 500 nope")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestEncodeSend(t *testing.T) {
	frame := EncodeSend("alice", []string{"send", "@bob", "hi", "there"})
	assert.Equal(t, "msgp send\nfrom: alice\nto: @bob\n\nhi there \n\n", frame)

	// Decoding the encoded frame recovers sender and body verbatim.
	msg := DecodeMessage(frame)
	assert.Equal(t, "alice", msg.From)
	assert.Equal(t, "hi there ", msg.Body)
	assert.Equal(t, []string{"@bob"}, msg.To)
}

func TestEncodeSendMixedRecipients(t *testing.T) {
	frame := EncodeSend("alice", []string{"send", "#team", "@bob", "release", "is", "out"})

	assert.Equal(t, []string{"#team", "@bob"}, RecipientTokens(frame))
	msg := DecodeMessage(frame)
	assert.Equal(t, "release is out ", msg.Body)
}

func TestIsMessageFrame(t *testing.T) {
	assert.True(t, IsMessageFrame("msgp send\nfrom: a\n\nx \n\n"))
	assert.False(t, IsMessageFrame("msgp 200 OK"))
	assert.False(t, IsMessageFrame("msgp join a b"))
}

func TestRecipientTokens(t *testing.T) {
	frame := "msgp send\nfrom: alice\nto: @bob\nto: #team\n\nhello \n\n"
	assert.Equal(t, []string{"@bob", "#team"}, RecipientTokens(frame))

	// A bare "to:" line without a token is ignored.
	assert.Nil(t, RecipientTokens("msgp send\nfrom: a\nto: \n\nx \n\n"))
}

func TestSplitHistory(t *testing.T) {
	m1 := EncodeSend("alice", []string{"send", "#team", "first"})
	m2 := EncodeSend("bob", []string{"send", "#team", "second"})
	m3 := EncodeSend("alice", []string{"send", "#team", "third"})

	entries := SplitHistory(m1 + m2 + m3)
	require.Len(t, entries, 3)

	wantFrom := []string{"alice", "bob", "alice"}
	wantBody := []string{"first ", "second ", "third "}
	for i, entry := range entries {
		msg := DecodeMessage(entry)
		assert.Equal(t, wantFrom[i], msg.From, "entry %d", i)
		assert.Equal(t, wantBody[i], msg.Body, "entry %d", i)
	}
}

func TestSplitHistorySingleEntry(t *testing.T) {
	m1 := EncodeSend("alice", []string{"send", "#team", "only"})
	entries := SplitHistory(m1)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", DecodeMessage(entries[0]).From)
}
