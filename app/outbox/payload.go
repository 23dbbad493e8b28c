package outbox

import (
	"encoding/json"
	"fmt"
)

// PayloadVersion tags every encoded event so future handlers can skip
// payloads they cannot parse instead of crash-looping on them.
const PayloadVersion = 1

// UserEvent is the snapshot stored in an outbox event's payload. The stored
// form is an opaque blob to the outbox table; only the dispatcher decodes it.
type UserEvent struct {
	Version   int    `json:"version"`
	UserID    int64  `json:"usuarioId"`
	Email     string `json:"email"`
	Name      string `json:"nombre"`
	LastNameP string `json:"apellidoP"`
	LastNameM string `json:"apellidoM"`
	PrevRole  string `json:"rolAnterior"`
	NewRole   string `json:"rolNuevo"`
}

// EncodeUserEvent serializes a snapshot at the current payload version.
func EncodeUserEvent(ev UserEvent) (string, error) {
	ev.Version = PayloadVersion
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode outbox payload: %w", err)
	}
	return string(b), nil
}

// DecodeUserEvent parses a payload, rejecting blobs it cannot read. Callers
// treat a decode error as permanent: the event is dead-lettered, not retried.
func DecodeUserEvent(raw string) (*UserEvent, error) {
	var ev UserEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return nil, fmt.Errorf("decode outbox payload: %w", err)
	}
	if ev.Version != PayloadVersion {
		return nil, fmt.Errorf("unsupported payload version %d", ev.Version)
	}
	return &ev, nil
}
