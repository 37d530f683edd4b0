package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries any client action. QuestionID and Value are only
// set for autosave.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Value      string `json:"value,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventTick   Event = "tick"
	EventPong   Event = "pong"
)

// TickResponse is pushed every second while the connection is open. It is
// a display-only projection: the server recomputes remaining time from the
// persisted start on every tick, so a lagging client never gains time.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	Expired          bool  `json:"expired"`
}

type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

type GradedResponse struct {
	Event      Event   `json:"event"`
	Percentage float64 `json:"percentage"`
	Grade20    float64 `json:"grade20"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
