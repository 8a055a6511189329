// Package server defines the JSON event types exchanged between clients and
// the hub, together with decoding and validation of inbound frames.
package server

import (
	"encoding/json"
	"log"

	"github.com/go-playground/validator/v10"
)

// Event type discriminators shared by both directions of the protocol.
const (
	eventTypePseudo  = "pseudo"
	eventTypeMessage = "message"
	eventTypeHistory = "history"
	eventTypePseudos = "pseudos"
	eventTypeSystem  = "system"
)

var validate = validator.New()

// clientEvent is the envelope for everything a client may send: a display
// name announcement ("pseudo") or a chat message ("message"). A message must
// carry the claimed sender name to satisfy the wire contract, even though
// the hub attributes it to the name it has on record.
type clientEvent struct {
	Type   string `json:"type" validate:"required,oneof=pseudo message"`
	Txt    string `json:"txt" validate:"required"`
	Pseudo string `json:"pseudo" validate:"required_if=Type message"`
}

// messageEvent is a single chat message fanned out to every live connection.
type messageEvent struct {
	Type   string `json:"type"`
	Txt    string `json:"txt"`
	Pseudo string `json:"pseudo"`
}

// historyEntry is one retained chat message. It is stored in the shape it is
// sent in, so replaying history is a plain marshal of the buffer snapshot.
type historyEntry struct {
	Type      string `json:"type"`
	Txt       string `json:"txt"`
	Pseudo    string `json:"pseudo"`
	Timestamp string `json:"timestamp"`
}

// historyEvent replays the retained backlog to a newly connected client.
type historyEvent struct {
	Type     string         `json:"type"`
	Messages []historyEntry `json:"messages"`
}

// pseudosEvent carries the current presence list.
type pseudosEvent struct {
	Type    string   `json:"type"`
	Pseudos []string `json:"pseudos"`
}

// systemEvent is a human-readable join/leave/rename notice.
type systemEvent struct {
	Type string `json:"type"`
	Txt  string `json:"txt"`
}

// decodeClientEvent parses and validates a raw inbound frame. Frames with an
// unknown type or missing required fields are rejected; callers drop them
// without touching the connection.
func decodeClientEvent(raw []byte) (clientEvent, error) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return clientEvent{}, err
	}
	if err := validate.Struct(event); err != nil {
		return clientEvent{}, err
	}
	return event, nil
}

// encodeEvent marshals an outbound event, reporting failures instead of
// propagating them; a payload that cannot be encoded is simply not sent.
func encodeEvent(event any) ([]byte, bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error encoding %T event: %v", event, err)
		return nil, false
	}
	return payload, true
}
