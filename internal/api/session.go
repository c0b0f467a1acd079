package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/filecast/internal/api/models"
	"github.com/smazurov/filecast/internal/session"
	"github.com/smazurov/filecast/internal/viewer"
)

// registerSessionRoutes registers the stream session endpoints
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Get Session",
		Description: "Get the controller state and the active stream session, if any",
		Tags:        []string{"session"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.SessionResponse, error) {
		if s.controller == nil {
			return nil, errNoController()
		}
		s.mu.Lock()
		data := s.sessionData()
		s.mu.Unlock()
		return &models.SessionResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/session",
		Summary:     "Start Session",
		Description: "Start streaming a local file. Any active session is stopped first, unless the request is invalid.",
		Tags:        []string{"session"},
		Errors:      []int{400, 401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StartSessionRequest) (*models.SessionResponse, error) {
		if s.controller == nil {
			return nil, errNoController()
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		_, err := s.controller.Start(ctx, session.Request{
			SourcePath: input.Body.SourcePath,
			Protocol:   input.Body.Protocol,
			Address:    input.Body.Address,
			Port:       input.Body.Port,
		})
		if err != nil {
			return nil, mapSessionError(err)
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "stop-session",
		Method:        http.MethodDelete,
		Path:          "/api/session",
		Summary:       "Stop Session",
		Description:   "Stop the active stream session. Stopping an idle controller succeeds.",
		Tags:          []string{"session"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 503},
		Security:      withAuth(),
	}, func(ctx context.Context, input *struct{}) (*struct{}, error) {
		if s.controller == nil {
			return nil, errNoController()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.controller.Stop()
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "launch-viewer",
		Method:      http.MethodPost,
		Path:        "/api/session/viewer",
		Summary:     "Launch Viewer",
		Description: "Open the active session's playback URL in the configured player on this host",
		Tags:        []string{"session"},
		Errors:      []int{401, 409, 424, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ViewerResponse, error) {
		if s.options.Viewer == nil {
			return nil, huma.Error503ServiceUnavailable("Viewer is not configured")
		}
		url, err := s.activeURL()
		if err != nil {
			return nil, err
		}

		pid, err := s.options.Viewer.Launch(ctx, url)
		if err != nil {
			return nil, mapViewerError(err)
		}
		return &models.ViewerResponse{
			Body: models.ViewerData{
				Viewer:      s.options.Viewer.Path(),
				PID:         pid,
				PlaybackURL: url,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "copy-session-url",
		Method:      http.MethodPost,
		Path:        "/api/session/clipboard",
		Summary:     "Copy Playback URL",
		Description: "Copy the active session's playback URL to this host's clipboard",
		Tags:        []string{"session"},
		Errors:      []int{401, 409, 424, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ClipboardResponse, error) {
		if s.options.Clipboard == nil {
			return nil, huma.Error503ServiceUnavailable("Clipboard is not configured")
		}
		url, err := s.activeURL()
		if err != nil {
			return nil, err
		}

		if err := s.options.Clipboard.Copy(ctx, url); err != nil {
			return nil, huma.NewError(http.StatusFailedDependency, "Failed to copy to clipboard", err)
		}
		return &models.ClipboardResponse{Body: models.ClipboardData{PlaybackURL: url}}, nil
	})
}

// sessionData converts controller state to the API model. Callers hold s.mu.
func (s *Server) sessionData() models.SessionData {
	info, ok := s.controller.Current()
	if !ok {
		return models.SessionData{State: string(session.StateIdle)}
	}
	return models.SessionData{
		State:       string(session.StateActive),
		PlaybackURL: info.PlaybackURL,
		Protocol:    string(info.Protocol),
		SourcePath:  info.SourcePath,
		Address:     info.Address,
		Port:        info.Port,
		PID:         info.PID,
		StartedAt:   info.StartedAt,
		Command:     info.Args,
	}
}

// activeURL returns the active playback URL or a 409 when idle.
func (s *Server) activeURL() (string, error) {
	if s.controller == nil {
		return "", errNoController()
	}
	s.mu.Lock()
	url := s.controller.PlaybackURL()
	s.mu.Unlock()
	if url == "" {
		return "", huma.Error409Conflict("No active stream session")
	}
	return url, nil
}

func errNoController() error {
	return huma.Error503ServiceUnavailable("Session controller is not configured")
}

// mapSessionError maps controller errors to HTTP errors
func mapSessionError(err error) error {
	var validationErr *session.ValidationError
	if errors.As(err, &validationErr) {
		location := "body." + validationErr.Field
		if validationErr.Field == session.FieldSource {
			location = "body.source_path"
		}
		return huma.Error400BadRequest(validationErr.Error(), &huma.ErrorDetail{
			Message:  validationErr.Reason,
			Location: location,
		})
	}

	var launchErr *session.LaunchError
	if errors.As(err, &launchErr) {
		return huma.Error502BadGateway("Failed to launch ffmpeg", launchErr)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return huma.Error503ServiceUnavailable("Request cancelled", err)
	}

	return huma.Error500InternalServerError("internal server error", err)
}

func mapViewerError(err error) error {
	if errors.Is(err, viewer.ErrViewerNotFound) {
		return huma.NewError(http.StatusFailedDependency, "Viewer executable not found", err)
	}
	var launchErr *viewer.LaunchError
	if errors.As(err, &launchErr) {
		return huma.NewError(http.StatusFailedDependency, "Failed to launch viewer", err)
	}
	return huma.Error500InternalServerError("internal server error", err)
}
