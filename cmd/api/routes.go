package main

import (
	"database/sql"
	"net/http"
	"time"

	"callwatch/internal/auth"
	"callwatch/internal/bus"
	"callwatch/internal/calls"
	"callwatch/internal/config"
	"callwatch/internal/httpapi"
	"callwatch/internal/reporting"
	"callwatch/internal/stream"
	"callwatch/internal/telephony"
	"callwatch/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	cfg         config.Config
	db          *sql.DB
	authManager *auth.Manager
	bus         *bus.Bus
	calls       *calls.Service
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public; trust comes from signature validation).
	wh := telephony.WebhookHandlers{
		Calls:              deps.calls,
		AuthToken:          deps.cfg.Twilio.AuthToken,
		AnswerURL:          deps.cfg.AnswerWebhookURL(),
		StatusURL:          deps.cfg.StatusWebhookURL(),
		ValidateSignatures: deps.cfg.Twilio.ValidateSignatures,
	}
	r.POST("/webhooks/twilio/answer", wh.HandleAnswer)
	r.POST("/webhooks/twilio/status", wh.HandleStatus)

	h := httpapi.Handlers{
		Auth:      deps.authManager,
		Calls:     deps.calls,
		Reporting: reporting.NewService(calls.NewPGStore(deps.db)),
	}

	// AUTH routes (token issuance).
	// NOTE: login is a placeholder; real credential validation is not implemented.
	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.authManager))
	{
		callsGroup := v1.Group("/calls")
		{
			callsGroup.POST("/dial", h.Dial)
			callsGroup.POST("/hangup", h.Hangup)
			callsGroup.GET("", h.ListCalls)
			callsGroup.GET("/summary", h.CallSummary)

			// Live event feed (SSE). Token may arrive via the access_token
			// query parameter; EventSource cannot set headers.
			sse := stream.Handler{
				Bus:             deps.bus,
				Heartbeat:       deps.cfg.Stream.HeartbeatInterval,
				CloseOnTerminal: deps.cfg.Stream.CloseOnTerminal,
			}
			callsGroup.GET("/events", sse.Events)
		}
	}
}
