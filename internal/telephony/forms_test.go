package telephony

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newFormRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/answer", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}
