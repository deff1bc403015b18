package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sentiment-alpha/internal/domain"
	"sentiment-alpha/internal/events"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	replayBatch  = 200
	wsWriteWait  = 10 * time.Second
	stateSummary = "state snapshot"
)

// streamMessage is the envelope pushed to SSE and websocket clients.
type streamMessage struct {
	ID        int64   `json:"id,omitempty"`
	Type      string  `json:"type"`
	Data      any     `json:"data"`
	Summary   string  `json:"summary"`
	Timestamp float64 `json:"timestamp"`
}

func messageOf(e domain.Event) streamMessage {
	return streamMessage{ID: e.ID, Type: e.Type, Data: e.Payload, Summary: e.Summary, Timestamp: e.Timestamp}
}

// GetEvents godoc
// @Summary      Recent events
// @Description  Without since_id returns the newest events, otherwise the oldest events after it
// @Tags         events
// @Produce      json
// @Param        since_id  query  int  false  "Cursor"
// @Param        limit     query  int  false  "1-200"  default(50)
// @Success      200  {array}   domain.Event
// @Failure      400  {object}  map[string]string
// @Router       /api/events [get]
func (h *Handler) GetEvents(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
		return
	}
	sinceID, err := sinceIDOf(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit := events.DefaultLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			badRequest(c, fmt.Errorf("limit must be an integer"))
			return
		}
	}
	c.JSON(http.StatusOK, h.bus.ListSince(sinceID, limit))
}

// StreamEvents godoc
// @Summary      Server-sent event stream
// @Description  Sends a state snapshot, then every new event with its id. Comments keep the connection alive.
// @Tags         events
// @Produce      text/event-stream
// @Param        since_id  query  int  false  "Replay events after this id"
// @Router       /events [get]
func (h *Handler) StreamEvents(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
		return
	}
	cursor, err := sinceIDOf(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if cursor == nil {
		if raw := c.GetHeader("Last-Event-ID"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				cursor = &id
			}
		}
	}
	var lastID int64
	if cursor != nil {
		lastID = *cursor
	}

	ctx := c.Request.Context()
	sub, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, 0, domain.EventState, h.stateMessage(ctx)); err != nil {
		return
	}
	if err := h.replaySSE(w, &lastID); err != nil {
		return
	}
	w.Flush()

	ticker := time.NewTicker(h.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			if evt.ID <= lastID {
				continue
			}
			if err := writeSSE(w, evt.ID, evt.Type, messageOf(evt)); err != nil {
				return
			}
			lastID = evt.ID
			w.Flush()
		case <-ticker.C:
			if err := h.replaySSE(w, &lastID); err != nil {
				return
			}
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			w.Flush()
		}
	}
}

// replaySSE writes buffered events after lastID. It also covers events a slow
// subscriber channel dropped.
func (h *Handler) replaySSE(w io.Writer, lastID *int64) error {
	for {
		batch := h.bus.ListSince(lastID, replayBatch)
		for _, evt := range batch {
			if err := writeSSE(w, evt.ID, evt.Type, messageOf(evt)); err != nil {
				return err
			}
			*lastID = evt.ID
		}
		if len(batch) < replayBatch {
			return nil
		}
	}
}

// writeSSE frames msg as one server-sent event. The id line is omitted when
// id is zero.
func writeSSE(w io.Writer, id int64, event string, msg streamMessage) error {
	evt := sse.Event{Event: event, Data: msg}
	if id > 0 {
		evt.Id = strconv.FormatInt(id, 10)
	}
	return sse.Encode(w, evt)
}

// StreamWebSocket godoc
// @Summary      Websocket event stream
// @Description  Same envelopes as /events, one JSON message per event
// @Tags         events
// @Param        since_id  query  int  false  "Replay events after this id"
// @Router       /ws [get]
func (h *Handler) StreamWebSocket(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
		return
	}
	cursor, err := sinceIDOf(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var lastID int64
	if cursor != nil {
		lastID = *cursor
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg streamMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg)
	}
	replay := func() error {
		for {
			batch := h.bus.ListSince(&lastID, replayBatch)
			for _, evt := range batch {
				if err := send(messageOf(evt)); err != nil {
					return err
				}
				lastID = evt.ID
			}
			if len(batch) < replayBatch {
				return nil
			}
		}
	}

	if err := send(h.stateMessage(ctx)); err != nil {
		return
	}
	if err := replay(); err != nil {
		return
	}

	ticker := time.NewTicker(h.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case evt := <-sub:
			if evt.ID <= lastID {
				continue
			}
			if err := send(messageOf(evt)); err != nil {
				return
			}
			lastID = evt.ID
		case <-ticker.C:
			if err := replay(); err != nil {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) stateMessage(ctx context.Context) streamMessage {
	msg := streamMessage{
		Type:      domain.EventState,
		Data:      map[string]any{},
		Summary:   stateSummary,
		Timestamp: float64(time.Now().UnixMilli()) / 1e3,
	}
	if h.signals == nil {
		return msg
	}
	st, err := h.signals.State(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("state snapshot for stream")
		msg.Data = map[string]any{"asset": h.signals.Asset()}
		return msg
	}
	msg.Data = st
	return msg
}

func sinceIDOf(c *gin.Context) (*int64, error) {
	raw := strings.TrimSpace(c.Query("since_id"))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("since_id must be an integer")
	}
	return &id, nil
}
