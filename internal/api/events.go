package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/filecast/internal/api/models"
	"github.com/smazurov/filecast/internal/events"
	"github.com/smazurov/filecast/internal/session"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "A session-state snapshot, then session and viewer events. session-state is re-sent after every completed start or stop and is the event to track state from; the other events are notifications whose relative order is not guaranteed.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"session-state":         models.SessionData{},
		"session-started":       events.SessionStartedEvent{},
		"session-stopped":       events.SessionStoppedEvent{},
		"session-launch-failed": events.SessionLaunchFailedEvent{},
		"viewer-launched":       events.ViewerLaunchedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)
		unsubscribe := events.SubscribeAll(s.eventBus, eventCh)
		defer unsubscribe()

		// Send the current state so clients need no separate GET
		snapshot := models.SessionData{State: string(session.StateIdle)}
		if s.controller != nil {
			s.mu.Lock()
			snapshot = s.sessionData()
			s.mu.Unlock()
		}
		if err := send.Data(snapshot); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if state, ok := event.(events.SessionStateEvent); ok {
					event = sessionStateData(state)
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func sessionStateData(e events.SessionStateEvent) models.SessionData {
	return models.SessionData{
		State:       e.State,
		PlaybackURL: e.PlaybackURL,
		Protocol:    e.Protocol,
		SourcePath:  e.SourcePath,
		Address:     e.Address,
		Port:        e.Port,
		PID:         e.PID,
		StartedAt:   e.StartedAt,
		Command:     e.Command,
	}
}
