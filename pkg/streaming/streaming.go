// Package streaming defines the wire protocol for live frame delivery to a
// viewer server over WebSocket.
package streaming

import (
	"encoding/json"

	"github.com/markerflow/markerflow/pkg/core"
)

// Message type constants for the frame streaming protocol.
const (
	TypeStartSession  = "start_session"
	TypeEndSession    = "end_session"
	TypeFrame         = "frame"
	TypeProfileChange = "profile_change"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a new recording session to the server.
type StartSessionPayload struct {
	Session *core.RecordingSession `json:"session"`
}
