package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/srand/jolt/workforce/pkg/utils"
)

// MessageType tags a workforce channel message. The numeric values are
// part of the wire format and must never be renumbered.
type MessageType uint8

const (
	// Application message to or from a worker: (workerId, payload).
	WorkerMessage MessageType = iota + 1
	// A worker died: (workerId, reason).
	WorkerDead
	// A provider spawned a worker: (workerId, providerId).
	AddWorker
	// The remote side requests a graceful stop: ().
	Stop
	// The workforce is shutting down: ().
	Kill
	// Message to all workers of the workforce: (payload).
	Broadcast
	// Request workers from a set of providers: (providerIds).
	Populate
)

var messageTypeNames = map[MessageType]string{
	WorkerMessage: "worker message",
	WorkerDead:    "worker dead",
	AddWorker:     "add worker",
	Stop:          "stop",
	Kill:          "kill",
	Broadcast:     "broadcast",
	Populate:      "populate",
}

// Number of tuple elements, including the type tag.
var messageArity = map[MessageType]int{
	WorkerMessage: 3,
	WorkerDead:    3,
	AddWorker:     3,
	Stop:          1,
	Kill:          1,
	Broadcast:     2,
	Populate:      2,
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

func (t MessageType) Valid() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// Message is one tuple exchanged over a workforce channel. Only the fields
// that belong to the payload shape of Type are meaningful.
type Message struct {
	Type        MessageType
	WorkerId    string
	ProviderId  string
	Reason      string
	Payload     json.RawMessage
	ProviderIds []string
}

func NewWorkerMessage(workerId string, payload json.RawMessage) *Message {
	return &Message{Type: WorkerMessage, WorkerId: workerId, Payload: payload}
}

func NewWorkerDead(workerId, reason string) *Message {
	return &Message{Type: WorkerDead, WorkerId: workerId, Reason: reason}
}

func NewAddWorker(workerId, providerId string) *Message {
	return &Message{Type: AddWorker, WorkerId: workerId, ProviderId: providerId}
}

func NewStop() *Message {
	return &Message{Type: Stop}
}

func NewKill() *Message {
	return &Message{Type: Kill}
}

func NewBroadcast(payload json.RawMessage) *Message {
	return &Message{Type: Broadcast, Payload: payload}
}

func NewPopulate(providerIds []string) *Message {
	ids := make([]string, len(providerIds))
	copy(ids, providerIds)
	return &Message{Type: Populate, ProviderIds: ids}
}

func (m *Message) String() string {
	switch m.Type {
	case WorkerMessage:
		return fmt.Sprintf("[%s %s %s]", m.Type, m.WorkerId, m.Payload)
	case WorkerDead:
		return fmt.Sprintf("[%s %s %q]", m.Type, m.WorkerId, m.Reason)
	case AddWorker:
		return fmt.Sprintf("[%s %s %s]", m.Type, m.WorkerId, m.ProviderId)
	case Broadcast:
		return fmt.Sprintf("[%s %s]", m.Type, m.Payload)
	case Populate:
		return fmt.Sprintf("[%s %v]", m.Type, m.ProviderIds)
	}
	return fmt.Sprintf("[%s]", m.Type)
}

func payloadOrNull(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage("null")
	}
	return payload
}

// MarshalJSON encodes the message as a tuple: [type, ...payload].
func (m Message) MarshalJSON() ([]byte, error) {
	var tuple []any

	switch m.Type {
	case WorkerMessage:
		tuple = []any{m.Type, m.WorkerId, payloadOrNull(m.Payload)}
	case WorkerDead:
		tuple = []any{m.Type, m.WorkerId, m.Reason}
	case AddWorker:
		tuple = []any{m.Type, m.WorkerId, m.ProviderId}
	case Stop, Kill:
		tuple = []any{m.Type}
	case Broadcast:
		tuple = []any{m.Type, payloadOrNull(m.Payload)}
	case Populate:
		ids := m.ProviderIds
		if ids == nil {
			ids = []string{}
		}
		tuple = []any{m.Type, ids}
	default:
		return nil, fmt.Errorf("%w: %s", utils.ErrUnknownMessage, m.Type)
	}

	return json.Marshal(tuple)
}

func decodeString(raw json.RawMessage, field string) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", utils.ErrBadRequest, field)
	}
	return s, nil
}

// UnmarshalJSON decodes a [type, ...payload] tuple, checking its shape.
func (m *Message) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("%w: message is not a tuple: %v", utils.ErrBadRequest, err)
	}

	if len(tuple) == 0 {
		return fmt.Errorf("%w: empty message", utils.ErrBadRequest)
	}

	var msgType MessageType
	if err := json.Unmarshal(tuple[0], &msgType); err != nil {
		return fmt.Errorf("%w: invalid message type %s", utils.ErrBadRequest, tuple[0])
	}

	if !msgType.Valid() {
		return fmt.Errorf("%w: %s", utils.ErrUnknownMessage, msgType)
	}

	if len(tuple) != messageArity[msgType] {
		return fmt.Errorf("%w: %s expects %d elements, got %d",
			utils.ErrBadRequest, msgType, messageArity[msgType], len(tuple))
	}

	decoded := Message{Type: msgType}

	var err error
	switch msgType {
	case WorkerMessage:
		if decoded.WorkerId, err = decodeString(tuple[1], "worker id"); err != nil {
			return err
		}
		decoded.Payload = tuple[2]
	case WorkerDead:
		if decoded.WorkerId, err = decodeString(tuple[1], "worker id"); err != nil {
			return err
		}
		if decoded.Reason, err = decodeString(tuple[2], "reason"); err != nil {
			return err
		}
	case AddWorker:
		if decoded.WorkerId, err = decodeString(tuple[1], "worker id"); err != nil {
			return err
		}
		if decoded.ProviderId, err = decodeString(tuple[2], "provider id"); err != nil {
			return err
		}
	case Broadcast:
		decoded.Payload = tuple[1]
	case Populate:
		if err := json.Unmarshal(tuple[1], &decoded.ProviderIds); err != nil {
			return fmt.Errorf("%w: provider ids must be a list of strings", utils.ErrBadRequest)
		}
	}

	*m = decoded
	return nil
}

// Encode and Decode are the framing used by the stream transports.
func Encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

func Decode(data []byte) (*Message, error) {
	m := &Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
