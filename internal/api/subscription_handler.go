package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/api/shared"
	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/events"
)

// wsMessage is the wire form of a task notification. Type distinguishes the
// snapshot sent on connect from live transitions.
type wsMessage struct {
	Type string `json:"type"`
	events.TaskEvent
}

// messageFromEvent classifies an event for the wire. Snapshots are always
// "status"; live events are "progress" until a terminal "complete"/"error".
func messageFromEvent(event events.TaskEvent, snapshot bool) wsMessage {
	msg := wsMessage{TaskEvent: event}
	switch {
	case snapshot:
		msg.Type = "status"
	case event.Status == domain.TaskStatusCompleted:
		msg.Type = "complete"
	case event.Status == domain.TaskStatusFailed:
		msg.Type = "error"
	default:
		msg.Type = "progress"
	}
	return msg
}

// Subscriber hands out live event streams for individual tasks.
type Subscriber interface {
	Subscribe(taskID uuid.UUID) *events.Subscription
	Unsubscribe(sub *events.Subscription)
}

// SubscriptionHandler upgrades task-watch requests to a WebSocket and
// streams state transitions until the task ends.
//
// The stream carries the same information a polling client would get from
// GET /api/tasks/{id}; the connection opens with a snapshot of the current
// state, and any message from the client requests a fresh snapshot.
type SubscriptionHandler struct {
	service    TaskService
	subscriber Subscriber
	logger     *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(service TaskService, subscriber Subscriber, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service:    service,
		subscriber: subscriber,
		logger:     logger.With("component", "subscription_handler"),
	}
}

// WatchTask handles GET /api/tasks/{id}/ws requests
func (h *SubscriptionHandler) WatchTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	// Reject unknown tasks before upgrading.
	if _, err := h.service.GetTask(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// Subscribe before reading the snapshot: a transition between snapshot
	// and subscription would otherwise be lost.
	sub := h.subscriber.Subscribe(id)
	defer h.subscriber.Unsubscribe(sub)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			"task_id", id,
			"error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Any client message is a snapshot request.
	refresh := make(chan struct{}, 1)
	go h.readPump(ctx, cancel, conn, refresh)

	if done := h.sendSnapshot(ctx, conn, id); done {
		_ = conn.Close(websocket.StatusNormalClosure, "task finished")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-refresh:
			if done := h.sendSnapshot(ctx, conn, id); done {
				_ = conn.Close(websocket.StatusNormalClosure, "task finished")
				return
			}

		case event, ok := <-sub.Ch():
			if !ok {
				// The broadcaster closed the stream at a terminal event
				// that was already delivered.
				_ = conn.Close(websocket.StatusNormalClosure, "task finished")
				return
			}
			if err := wsjson.Write(ctx, conn, messageFromEvent(event, false)); err != nil {
				h.logger.DebugContext(ctx, "websocket write failed",
					"task_id", id,
					"error", err)
				return
			}
			if event.Terminal() {
				_ = conn.Close(websocket.StatusNormalClosure, "task finished")
				return
			}
		}
	}
}

// sendSnapshot writes the task's current state and reports whether the task
// is terminal.
func (h *SubscriptionHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn, id uuid.UUID) bool {
	snapshot, err := h.service.GetTask(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load task snapshot",
			"task_id", id,
			"error", err)
		return true
	}

	if err := wsjson.Write(ctx, conn, messageFromEvent(events.EventFromTask(snapshot), true)); err != nil {
		h.logger.DebugContext(ctx, "websocket write failed",
			"task_id", id,
			"error", err)
		return true
	}
	return snapshot.Status.Terminal()
}

// readPump drains client messages until the connection drops. Each message
// queues one snapshot refresh.
func (h *SubscriptionHandler) readPump(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	refresh chan<- struct{},
) {
	defer cancel()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
		select {
		case refresh <- struct{}{}:
		default:
		}
	}
}
