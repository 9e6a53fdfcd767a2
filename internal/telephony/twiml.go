package telephony

import (
	"bytes"
	"encoding/xml"

	"callwatch/internal/calls"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// humanGreeting is spoken when AMD reports a live pickup; the pause keeps
// the leg open for the operator.
const humanGreeting = "Hello, a human has answered. Connecting you."

const humanHoldSeconds = 60

// RenderAnswerTwiML builds the synchronous voice-control response for the
// AMD webhook: hold the line for a human, hang up for everything else.
func RenderAnswerTwiML(status calls.Status) (string, error) {
	var r twimlResponse
	if status == calls.StatusHuman {
		r.Verbs = append(r.Verbs, twimlSay{Text: humanGreeting}, twimlPause{Length: humanHoldSeconds})
	} else {
		r.Verbs = append(r.Verbs, twimlHangup{})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
