package calls

// Status resolution maps the two independent webhook channels (AMD result,
// provider call-status) onto the call's authoritative status. Whichever
// channel fires a terminal verdict first wins; the store's terminal-status
// guard keeps a later, possibly contradictory, signal from clobbering it.

// ResolveAMD maps a Twilio AnsweredBy value to a terminal status.
// It always resolves: ambiguous AMD outcomes (timeout, fax, unknown, absent)
// are treated as non-human rather than left pending.
func ResolveAMD(answeredBy string) Status {
	switch answeredBy {
	case "human":
		return StatusHuman
	case "machine_start", "machine":
		// "machine" is the legacy value from pre-async AMD.
		return StatusMachine
	default:
		return StatusNoAnswer
	}
}

// ResolveProviderStatus maps a Twilio CallStatus value to a terminal status.
// ok is false for lifecycle statuses (ringing, in-progress, completed, ...)
// that do not determine an outcome on their own.
func ResolveProviderStatus(callStatus string) (status Status, ok bool) {
	switch callStatus {
	case "no-answer", "busy", "canceled":
		return StatusNoAnswer, true
	case "failed", "undelivered":
		return StatusError, true
	default:
		return "", false
	}
}
