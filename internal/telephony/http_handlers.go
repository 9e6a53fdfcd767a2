package telephony

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"callwatch/internal/calls"
	"callwatch/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallIngest is the slice of the calls service the webhook layer needs.
type CallIngest interface {
	HandleAMDResult(ctx context.Context, callSid, answeredBy string) (calls.Status, error)
	HandleProviderStatus(ctx context.Context, callSid, callStatus string) error
}

// WebhookHandlers ingests provider callbacks. These endpoints are invoked by
// Twilio, not by users; trust comes from the signature check, not sessions.
//
// Failure policy: an internal failure must never surface as a non-2xx
// response, or the provider's retry behavior causes duplicate event storms.
// Internal failures are logged and masked behind a successful acknowledgment.
type WebhookHandlers struct {
	Calls CallIngest

	// Signature verification. AnswerURL/StatusURL must match the public
	// URLs Twilio was given at placement time.
	AuthToken          string
	AnswerURL          string
	StatusURL          string
	ValidateSignatures bool
}

const signatureHeader = "X-Twilio-Signature"

// HandleAnswer is the AMD/initial-answer webhook. It always returns a
// voice-control document: hold for a human, hang up otherwise. The store
// update happens after resolution and its failure does not change the
// response; the call must still be told what to do.
func (h WebhookHandlers) HandleAnswer(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseAnswerForm(c.Request)
	if err != nil {
		log.Warn("answer webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if !h.verify(c, h.AnswerURL) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	status, err := h.Calls.HandleAMDResult(c.Request.Context(), form.CallSid, form.AnsweredBy)
	if err != nil {
		logIngestError(log, err, form.CallSid, "answer")
	}

	twiml, err := RenderAnswerTwiML(status)
	if err != nil {
		log.Error("twiml render failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twiml)
}

// HandleStatus is the network call-status webhook. It always acknowledges
// with 204 so Twilio does not retry.
func (h WebhookHandlers) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseStatusForm(c.Request)
	if err != nil {
		log.Warn("status webhook parse failed", "err", err)
		c.Status(http.StatusNoContent)
		return
	}
	if !h.verify(c, h.StatusURL) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if err := h.Calls.HandleProviderStatus(c.Request.Context(), form.CallSid, form.CallStatus); err != nil {
		logIngestError(log, err, form.CallSid, "status")
	}
	c.Status(http.StatusNoContent)
}

func (h WebhookHandlers) verify(c *gin.Context, fullURL string) bool {
	if !h.ValidateSignatures {
		return true
	}
	return VerifySignature(h.AuthToken, fullURL, c.GetHeader(signatureHeader), c.Request.PostForm)
}

func logIngestError(log *slog.Logger, err error, callSid, webhook string) {
	switch {
	case errors.Is(err, calls.ErrNotFound):
		log.Warn("webhook for unknown call", "webhook", webhook, "call_sid", callSid)
	case errors.Is(err, calls.ErrFinalStatus):
		log.Warn("webhook after final status", "webhook", webhook, "call_sid", callSid)
	default:
		log.Error("webhook ingest failed", "webhook", webhook, "call_sid", callSid, "err", err)
	}
}
