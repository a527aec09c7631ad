package websocket

import (
	"github.com/stemsi/exstem-session/internal/engine"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSubscribed Event = "subscribed"
	EventAttempt    Event = "attempt"
	EventPong       Event = "pong"
)

// SubscribedResponse confirms the monitor is attached to a test.
type SubscribedResponse struct {
	Event  Event `json:"event"`
	TestID int64 `json:"test_id"`
}

// AttemptResponse forwards one attempt lifecycle event.
type AttemptResponse struct {
	Event Event        `json:"event"`
	Data  engine.Event `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
