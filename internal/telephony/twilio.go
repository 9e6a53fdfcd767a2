package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioClient places and terminates calls through the Twilio voice REST API.
// It intentionally avoids the provider SDK; the two endpoints we need are
// plain form-encoded POSTs.
//
// Placement always enables machine detection and registers both callbacks:
// the answer URL (initial TwiML, carries AnsweredBy) and the status URL.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// AnswerURL and StatusURL are the publicly reachable webhook endpoints.
	AnswerURL string
	StatusURL string

	// BaseURL overrides the Twilio API host in tests.
	BaseURL string
	HTTP    *http.Client
}

type twilioCallResponse struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *TwilioClient) Place(ctx context.Context, to string) (string, error) {
	form := url.Values{}
	form.Set("From", c.FromNumber)
	form.Set("To", to)
	form.Set("Url", c.AnswerURL)
	form.Set("MachineDetection", "Enable")
	form.Set("StatusCallback", c.StatusURL)

	out, err := c.post(ctx, "/Calls.json", form)
	if err != nil {
		return "", err
	}
	if out.Sid == "" {
		return "", errors.New("twilio: call created without sid")
	}
	return out.Sid, nil
}

func (c *TwilioClient) Terminate(ctx context.Context, callSid string) error {
	// Updating the call resource to "completed" ends the leg.
	form := url.Values{}
	form.Set("Status", "completed")

	_, err := c.post(ctx, "/Calls/"+url.PathEscape(callSid)+".json", form)
	return err
}

func (c *TwilioClient) post(ctx context.Context, path string, form url.Values) (twilioCallResponse, error) {
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	endpoint := baseURL + "/2010-04-01/Accounts/" + c.AccountSID + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return twilioCallResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.AccountSID, c.AuthToken)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return twilioCallResponse{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var out twilioCallResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Message != "" {
			return out, fmt.Errorf("twilio: %s", out.Message)
		}
		return out, fmt.Errorf("twilio: request failed with status %d", resp.StatusCode)
	}
	return out, nil
}
