package telephony

import (
	"net/http"
	"strings"
)

// Twilio sends voice webhooks as application/x-www-form-urlencoded.
// These forms capture only the fields the ingest path cares about; the rest
// of the payload is provider noise.

// AnswerForm is the initial-answer (AMD) webhook body.
type AnswerForm struct {
	CallSid    string
	AnsweredBy string
	CallStatus string
	To         string
}

// StatusForm is the network call-status webhook body.
type StatusForm struct {
	CallSid      string
	CallStatus   string
	CallDuration string
}

func ParseAnswerForm(r *http.Request) (AnswerForm, error) {
	if err := r.ParseForm(); err != nil {
		return AnswerForm{}, err
	}
	return AnswerForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		AnsweredBy: strings.TrimSpace(r.PostFormValue("AnsweredBy")),
		CallStatus: strings.TrimSpace(r.PostFormValue("CallStatus")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
	}, nil
}

func ParseStatusForm(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	return StatusForm{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus:   strings.TrimSpace(r.PostFormValue("CallStatus")),
		CallDuration: strings.TrimSpace(r.PostFormValue("CallDuration")),
	}, nil
}
