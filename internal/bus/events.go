package bus

// EventType discriminates live call events pushed to browser sessions.
type EventType string

const (
	// EventDialing is emitted once, right after call placement succeeds.
	EventDialing EventType = "DIALING"
	// EventUpdate is emitted at most once per resolved terminal status.
	EventUpdate EventType = "UPDATE"
	// EventError carries a provider-side failure message for a call.
	EventError EventType = "ERROR"
	// EventReady is synthetic: sent to a newly opened stream only, never published.
	EventReady EventType = "READY"
)

// Event is a transient call event. It is constructed, published, and
// discarded; nothing persists it.
//
// The JSON field names are part of the wire contract with the dashboard.
type Event struct {
	Type    EventType `json:"type"`
	UserID  string    `json:"userId,omitempty"`
	CallSid string    `json:"callSid,omitempty"`
	To      string    `json:"to,omitempty"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
}

// UserTopic scopes a subscription to every call owned by one user.
func UserTopic(userID string) string { return "user:" + userID }

// CallTopic scopes a subscription to a single provider call.
func CallTopic(callSid string) string { return "call:" + callSid }
