// README: Gateway identities, wire envelopes and errors.
package gateway

import (
	"encoding/json"
	"errors"

	"ridewave/internal/modules/user"
	"ridewave/internal/types"
)

// Handle addresses one live connection.
type Handle string

// Identity is attached to a connection at handshake time and never changes.
type Identity struct {
	UserID    types.ID
	Role      user.Role
	PushToken string
}

// Envelope is the outbound frame: {"event": "...", "data": ...}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound is a client frame with the payload left undecoded.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ErrorPayload is the body of every outbound "error" event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// EventError is the outbound event name for user-visible failures.
const EventError = "error"

var (
	ErrUnauthenticated = errors.New("authentication invalid")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrForbidden       = errors.New("event not permitted for role")
)
