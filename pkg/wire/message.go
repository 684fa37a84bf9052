// Package wire implements the framing protocol shared by seed and peer
// nodes. Every message is a self-describing JSON record carrying a type tag,
// a sender timestamp and a typed payload, serialised to UTF-8 and terminated
// by a single newline byte. JSON string escaping guarantees that no raw
// newline can appear inside a serialised record, so the delimiter is
// unambiguous.
package wire

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Delimiter terminates every frame on the wire.
const Delimiter = '\n'

// Type is the message type tag carried in every frame.
type Type string

const (
	// Peer → seed
	TypeRegisterRequest Type = "REGISTER_REQUEST"
	TypeDeadNodeReport  Type = "DEAD_NODE_REPORT"
	TypeGetPeerList     Type = "GET_PEER_LIST"

	// Seed → peer
	TypeRegisterAck   Type = "REGISTER_ACK"
	TypeRegisterNack  Type = "REGISTER_NACK"
	TypePeerList      Type = "PEER_LIST"
	TypeRemovalNotify Type = "REMOVAL_NOTIFY"

	// Seed ↔ seed (consensus)
	TypeProposeRegister Type = "PROPOSE_REGISTER"
	TypeVoteRegister    Type = "VOTE_REGISTER"
	TypeProposeRemove   Type = "PROPOSE_REMOVE"
	TypeVoteRemove      Type = "VOTE_REMOVE"
	TypeSeedSync        Type = "SEED_SYNC"

	// Peer ↔ peer
	TypeGossip          Type = "GOSSIP"
	TypePing            Type = "PING"
	TypePong            Type = "PONG"
	TypeSuspectQuery    Type = "SUSPECT_QUERY"
	TypeSuspectResponse Type = "SUSPECT_RESPONSE"
)

// ErrMalformedFrame is returned when a line cannot be parsed into a message
// envelope. Readers drop such frames without aborting the connection.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// Message is the envelope shared by every frame on every connection.
type Message struct {
	Type      Type            `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Now returns the current time as epoch seconds, the timestamp
// representation used throughout the protocol.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// New builds a message of the given type around a payload value. A nil
// payload produces an empty object, so request types without parameters
// (GET_PEER_LIST) stay well-formed.
func New(t Type, payload interface{}) (*Message, error) {
	raw := json.RawMessage("{}")
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "wire: marshal %s payload", t)
		}
		raw = data
	}
	return &Message{Type: t, Timestamp: Now(), Payload: raw}, nil
}

// Encode serialises the message and appends the frame delimiter.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrapf(err, "wire: marshal %s", m.Type)
	}
	return append(data, Delimiter), nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return errors.Wrapf(err, "wire: decode %s payload", m.Type)
	}
	return nil
}

// Parse turns one newline-terminated line back into a message. The line may
// still carry its delimiter and surrounding whitespace.
func Parse(line []byte) (*Message, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, ErrMalformedFrame
	}
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return nil, ErrMalformedFrame
	}
	if m.Type == "" {
		return nil, ErrMalformedFrame
	}
	if m.Payload == nil {
		m.Payload = json.RawMessage("{}")
	}
	return &m, nil
}

// ParseStream extracts every complete frame from buf and returns the parsed
// messages together with the unconsumed remainder. Malformed frames are
// skipped.
func ParseStream(buf []byte) ([]*Message, []byte) {
	var msgs []*Message
	for {
		i := bytes.IndexByte(buf, Delimiter)
		if i < 0 {
			return msgs, buf
		}
		line := buf[:i]
		buf = buf[i+1:]
		if m, err := Parse(line); err == nil {
			msgs = append(msgs, m)
		}
	}
}
