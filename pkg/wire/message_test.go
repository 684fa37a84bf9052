package wire

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	msg, err := New(TypeRegisterRequest, &RegisterRequest{Host: "127.0.0.1", Port: 7000})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if data[len(data)-1] != Delimiter {
		t.Errorf("encoded frame does not end with delimiter")
	}
	if bytes.IndexByte(data[:len(data)-1], Delimiter) >= 0 {
		t.Errorf("raw newline inside serialised frame")
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Type != TypeRegisterRequest {
		t.Errorf("expected type %s, got %s", TypeRegisterRequest, parsed.Type)
	}

	var req RegisterRequest
	if err := parsed.Decode(&req); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if req.Host != "127.0.0.1" || req.Port != 7000 {
		t.Errorf("payload round trip mismatch: %+v", req)
	}
}

func TestNewNilPayload(t *testing.T) {
	msg, err := New(TypeGetPeerList, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if string(msg.Payload) != "{}" {
		t.Errorf("expected empty object payload, got %s", msg.Payload)
	}
	if msg.Timestamp <= 0 {
		t.Errorf("expected positive timestamp, got %f", msg.Timestamp)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not json",
		`{"timestamp": 1.0, "payload": {}}`, // missing type tag
		`{"type": "", "timestamp": 1.0}`,    // empty type tag
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); err == nil {
			t.Errorf("Parse(%q) should have failed", c)
		}
	}
}

func TestParseUnknownTypeIsWellFormed(t *testing.T) {
	// An unrecognised tag is a dispatch problem, not a framing problem.
	msg, err := Parse([]byte(`{"type": "BOGUS", "timestamp": 1.0, "payload": {}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Type != Type("BOGUS") {
		t.Errorf("expected BOGUS, got %s", msg.Type)
	}
}

func TestParseStream(t *testing.T) {
	frames := []string{
		`{"type": "PING", "timestamp": 1.0, "payload": {"sender": "a:1", "timestamp": 1.0}}`,
		`garbage line`,
		`{"type": "PONG", "timestamp": 2.0, "payload": {"sender": "b:2", "timestamp": 2.0}}`,
	}
	buf := []byte(strings.Join(frames, "\n") + "\n" + `{"type": "GOS`)

	msgs, rest := ParseStream(buf)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Type != TypePing || msgs[1].Type != TypePong {
		t.Errorf("unexpected types: %s, %s", msgs[0].Type, msgs[1].Type)
	}
	if string(rest) != `{"type": "GOS` {
		t.Errorf("unexpected remainder: %q", rest)
	}

	// Feeding the remainder plus the rest of the frame completes it.
	full := append(rest, []byte(`SIP", "timestamp": 3.0, "payload": {}}`+"\n")...)
	msgs, rest = ParseStream(full)
	if len(msgs) != 1 || msgs[0].Type != TypeGossip {
		t.Fatalf("expected completed GOSSIP frame, got %d messages", len(msgs))
	}
	if len(rest) != 0 {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}
