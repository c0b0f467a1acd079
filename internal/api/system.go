package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/filecast/internal/api/models"
	"github.com/smazurov/filecast/internal/media"
	"github.com/smazurov/filecast/internal/netaddr"
	"github.com/smazurov/filecast/internal/version"
)

// registerSystemRoutes registers health, version and discovery endpoints
func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-addresses",
		Method:      http.MethodGet,
		Path:        "/api/addresses",
		Summary:     "List Addresses",
		Description: "List this host's IPv4 addresses a stream can bind to. Falls back to 127.0.0.1 when none is found.",
		Tags:        []string{"system"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.AddressesResponse, error) {
		addrs := []string{netaddr.FallbackAddress}
		if s.options.Addresses != nil {
			addrs = s.options.Addresses.ListLocalAddresses(ctx)
		}
		return &models.AddressesResponse{
			Body: models.AddressesData{
				Addresses: addrs,
				Count:     len(addrs),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-protocols",
		Method:      http.MethodGet,
		Path:        "/api/protocols",
		Summary:     "List Protocols",
		Description: "List supported streaming protocols with their playback URL template and ffmpeg output format",
		Tags:        []string{"system"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ProtocolsResponse, error) {
		if s.controller == nil {
			return nil, errNoController()
		}
		s.mu.Lock()
		table := s.controller.Protocols()
		s.mu.Unlock()

		protocols := make([]models.ProtocolInfo, 0, len(table))
		for _, p := range table.Protocols() {
			spec := table[p]
			protocols = append(protocols, models.ProtocolInfo{
				Name:        string(p),
				URLTemplate: spec.URLTemplate,
				Format:      spec.Format,
			})
		}
		return &models.ProtocolsResponse{Body: models.ProtocolsData{Protocols: protocols}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-media",
		Method:      http.MethodGet,
		Path:        "/api/media",
		Summary:     "List Media",
		Description: "List video files in the configured media directory",
		Tags:        []string{"system"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.MediaResponse, error) {
		if s.options.MediaDir == "" {
			return nil, huma.Error404NotFound("Media directory is not configured")
		}
		files, err := media.List(s.options.MediaDir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, huma.Error404NotFound("Media directory not found", err)
			}
			return nil, huma.Error500InternalServerError("Failed to list media", err)
		}
		if files == nil {
			files = []media.File{}
		}
		return &models.MediaResponse{
			Body: models.MediaData{
				Dir:   s.options.MediaDir,
				Files: files,
				Count: len(files),
			},
		}, nil
	})
}
