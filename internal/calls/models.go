package calls

import "time"

// CallRecord is one outbound call attempt.
//
// Ownership invariant: OwnerID is required on every row and scopes all reads.
//
// Status invariant: PENDING is the only non-terminal value. Once a terminal
// value is set it is never overwritten; a later webhook for the same call is
// an idempotent no-op on the store.
type CallRecord struct {
	ID string `json:"id" db:"id"`

	// ProviderCallSid is the telephony provider's handle for this call
	// (Twilio CallSid). Unique; every webhook joins on it.
	ProviderCallSid string `json:"twilioCallSid" db:"provider_call_sid"`

	OwnerID      string `json:"ownerId" db:"owner_id"`
	TargetNumber string `json:"targetNumber" db:"target_number"`

	Strategy Strategy `json:"strategyUsed" db:"strategy"`
	Status   Status   `json:"status" db:"status"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	// UpdatedAt changes only on status transition.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusHuman    Status = "HUMAN"
	StatusMachine  Status = "MACHINE"
	StatusNoAnswer Status = "NO_ANSWER"
	StatusError    Status = "ERROR"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool { return s != StatusPending && s != "" }

// Strategy identifies which AMD engine was requested for a call.
// Only TWILIO_NATIVE is placed by this service today; the column keeps call
// logs comparable if other engines are added.
type Strategy string

const (
	StrategyTwilioNative Strategy = "TWILIO_NATIVE"
	StrategyJambonz      Strategy = "JAMBONZ"
	StrategyHuggingFace  Strategy = "HUGGING_FACE"
	StrategyGemini       Strategy = "GEMINI"
)
