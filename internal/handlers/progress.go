// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/verify-portal/internal/sse"
)

// SSEHandler streams import progress events to subscribed clients.
type SSEHandler struct {
	hub *sse.Hub
}

// NewSSE creates a new SSE handler.
func NewSSE(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// Hub returns the hub so other components can publish events.
func (h *SSEHandler) Hub() *sse.Hub {
	return h.hub
}

// Events subscribes the caller to the progress events of one channel id.
// GET /api/progress/:channel
func (h *SSEHandler) Events(c echo.Context) error {
	channelID := c.Param("channel")
	if channelID == "" {
		return errorJSON(c, http.StatusBadRequest, "channel is required")
	}

	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, "SSE not supported")
	}

	// Set SSE headers
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	ch := h.hub.Subscribe(channelID)
	defer h.hub.Unsubscribe(channelID, ch)

	// Send initial connection event
	if _, err := w.Write([]byte(sse.FormatEvent("connected", "ok"))); err != nil {
		return nil
	}
	flusher.Flush()

	// Heartbeat ticker to keep connection alive through proxies
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	ctx := c.Request().Context()

	// Stream events until the client disconnects. A disconnect only ends
	// this subscription; the import keeps running.
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
