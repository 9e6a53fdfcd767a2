package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPlaceSendsAMDAndCallbacks(t *testing.T) {
	var gotPath string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotForm = r.PostForm
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC000" || pass != "token" {
			t.Fatalf("expected basic auth with account sid")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA123","status":"queued"}`))
	}))
	defer srv.Close()

	c := &TwilioClient{
		AccountSID: "AC000",
		AuthToken:  "token",
		FromNumber: "+15550000000",
		AnswerURL:  "https://app.example.com/webhooks/twilio/answer",
		StatusURL:  "https://app.example.com/webhooks/twilio/status",
		BaseURL:    srv.URL,
		HTTP:       srv.Client(),
	}

	sid, err := c.Place(context.Background(), "+12225550101")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sid != "CA123" {
		t.Fatalf("expected CA123, got %q", sid)
	}
	if gotPath != "/2010-04-01/Accounts/AC000/Calls.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	expect := map[string]string{
		"From":             "+15550000000",
		"To":               "+12225550101",
		"Url":              c.AnswerURL,
		"MachineDetection": "Enable",
		"StatusCallback":   c.StatusURL,
	}
	for k, want := range expect {
		if got := gotForm[k]; len(got) != 1 || got[0] != want {
			t.Fatalf("form %s = %v, want %q", k, got, want)
		}
	}
}

func TestPlaceSurfacesTwilioErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	c := &TwilioClient{AccountSID: "AC000", AuthToken: "t", BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Place(context.Background(), "+1")
	if err == nil || !strings.Contains(err.Error(), "Invalid 'To' Phone Number") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestTerminateUpdatesCallToCompleted(t *testing.T) {
	var gotPath, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotStatus = r.PostFormValue("Status")
		_, _ = w.Write([]byte(`{"sid":"CA123","status":"completed"}`))
	}))
	defer srv.Close()

	c := &TwilioClient{AccountSID: "AC000", AuthToken: "t", BaseURL: srv.URL, HTTP: srv.Client()}
	if err := c.Terminate(context.Background(), "CA123"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotPath != "/2010-04-01/Accounts/AC000/Calls/CA123.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotStatus != "completed" {
		t.Fatalf("expected Status=completed, got %q", gotStatus)
	}
}
