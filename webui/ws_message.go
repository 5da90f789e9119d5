package webui

import (
	"time"

	"thumbnail_studio/studio"
)

// Message types sent over the websocket. Studio events keep their own
// type names; these are the ones the server adds.
const (
	MessageTypeInitial = "initial"
	MessageTypeError   = "error"
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// NewWSMessage stamps a message with the current time.
func NewWSMessage(msgType string, data any) WSMessage {
	return WSMessage{Type: msgType, Timestamp: time.Now(), Data: data}
}

// MessageFromEvent wraps a studio event for the wire.
func MessageFromEvent(e studio.Event) WSMessage {
	return WSMessage{Type: string(e.Type), Timestamp: e.Timestamp, Data: e.Data}
}

// InitialData is sent to a client right after it connects.
type InitialData struct {
	Status studio.GeneratorStatus `json:"status"`
	Runs   []studio.SessionRun    `json:"runs"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
