package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"testing"
)

// computeSignature mirrors Twilio's documented algorithm; used by webhook
// tests as well.
func computeSignature(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	form := url.Values{"CallSid": {"CA123"}, "CallStatus": {"completed"}}
	const fullURL = "https://app.example.com/webhooks/twilio/status"

	sig := computeSignature("token", fullURL, form)
	if !VerifySignature("token", fullURL, sig, form) {
		t.Fatalf("expected valid signature to verify")
	}
	if VerifySignature("token", fullURL, sig, url.Values{"CallSid": {"CA999"}}) {
		t.Fatalf("tampered form must not verify")
	}
	if VerifySignature("other", fullURL, sig, form) {
		t.Fatalf("wrong token must not verify")
	}
}

func TestParseForms(t *testing.T) {
	// ParseAnswerForm / ParseStatusForm trim provider padding.
	formBody := "CallSid=CA123&AnsweredBy=human&CallStatus=in-progress"
	r := newFormRequest(t, formBody)
	f, err := ParseAnswerForm(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.CallSid != "CA123" || f.AnsweredBy != "human" {
		t.Fatalf("unexpected form: %+v", f)
	}

	r = newFormRequest(t, "CallSid=CA123&CallStatus=no-answer&CallDuration=0")
	s, err := ParseStatusForm(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.CallSid != "CA123" || s.CallStatus != "no-answer" {
		t.Fatalf("unexpected form: %+v", s)
	}
}
