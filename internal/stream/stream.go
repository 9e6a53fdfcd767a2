// Package stream serves the live call-event feed: one long-lived SSE
// response per browser session, fed by a bus subscription scoped to either a
// single call or all of the requesting user's calls.
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"callwatch/internal/auth"
	"callwatch/internal/bus"
	"callwatch/internal/calls"
	"callwatch/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultHeartbeat = 15 * time.Second

// eventBuffer bounds per-stream queueing between the synchronous bus
// delivery and the SSE writer. Delivery is best-effort; a stalled client
// drops events rather than blocking webhook handling.
const eventBuffer = 16

type Handler struct {
	Bus *bus.Bus

	// Heartbeat is the keep-alive interval; intermediaries (proxies, load
	// balancers) drop idle connections otherwise.
	Heartbeat time.Duration

	// CloseOnTerminal ends a call-scoped stream after a terminal UPDATE.
	// User-scoped streams never auto-close; they may watch several calls.
	CloseOnTerminal bool
}

// Events is the SSE endpoint. The optional callSid query parameter narrows
// the stream to one call; otherwise it covers every call the user owns.
//
// Wire format: the first record is always {"type":"READY"}, events follow as
// `data: <json>` records, and comment-only `:keep-alive` lines are emitted on
// a fixed interval independent of real events.
func (h Handler) Events(c *gin.Context) {
	log := logger.FromGin(c)

	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	callSid := c.Query("callSid")
	topic := bus.UserTopic(userID)
	if callSid != "" {
		topic = bus.CallTopic(callSid)
	}

	// The bus delivers synchronously from webhook handlers; hand events to
	// a buffered channel so those handlers never block on a slow client.
	ch := make(chan bus.Event, eventBuffer)
	sub := h.Bus.Subscribe(topic, func(ev bus.Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	// Unsubscribing on every exit path is a correctness requirement: the bus
	// would otherwise hold the handler closure for the process lifetime.
	defer h.Bus.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// Initial record so the client can tell "connected" from "silently dead".
	writeEvent(c.Writer, bus.Event{Type: bus.EventReady})
	c.Writer.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			// Client disconnect; the deferred unsubscribe tears down the
			// registration with the heartbeat already stopped above.
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ":keep-alive\n\n")
			c.Writer.Flush()
		case ev := <-ch:
			if callSid != "" && ev.CallSid != callSid {
				continue
			}
			writeEvent(c.Writer, ev)
			c.Writer.Flush()
			if h.CloseOnTerminal && callSid != "" && isTerminalUpdate(ev) {
				log.Debug("closing call-scoped stream on terminal status", "call_sid", callSid, "status", ev.Status)
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev bus.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func isTerminalUpdate(ev bus.Event) bool {
	return ev.Type == bus.EventUpdate && calls.Status(ev.Status).IsTerminal()
}
