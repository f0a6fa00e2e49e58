package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionWatch   Action = "watch"
	ActionUnwatch Action = "unwatch"
	ActionPing    Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// WatchRequest subscribes the connection to a test's live result feed.
type WatchRequest struct {
	Action Action `json:"action"`
	TestID string `json:"test_id"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventWatching Event = "watching"
	EventResult   Event = "result"
	EventPong     Event = "pong"
)

// WatchingResponse confirms a subscription.
type WatchingResponse struct {
	Event  Event  `json:"event"`
	TestID string `json:"test_id"`
}

// ResultEvent streams one graded submission to a watching admin.
type ResultEvent struct {
	Event            Event   `json:"event"`
	TestID           string  `json:"test_id"`
	UserID           int     `json:"user_id"`
	ResultID         string  `json:"result_id"`
	Score            float64 `json:"score"`
	TimeTakenSeconds int     `json:"time_taken_seconds"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
