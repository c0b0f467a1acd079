package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/filecast/internal/events"
	"github.com/smazurov/filecast/internal/ffmpeg"
	"github.com/smazurov/filecast/internal/logging"
	"github.com/smazurov/filecast/internal/session"
)

// AddressLister enumerates local addresses a stream can bind to.
type AddressLister interface {
	ListLocalAddresses(ctx context.Context) []string
}

// ViewerLauncher opens a playback URL in an external player.
type ViewerLauncher interface {
	Launch(ctx context.Context, url string) (int, error)
	Path() string
}

// ClipboardWriter places text on the desktop clipboard.
type ClipboardWriter interface {
	Copy(ctx context.Context, text string) error
}

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string
	CORSOrigin   string

	Controller *session.Controller
	Addresses  AddressLister
	Viewer     ViewerLauncher
	Clipboard  ClipboardWriter
	EventBus   *events.Bus
	MediaDir   string

	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// Server is the HTTP control surface for a single session controller.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	eventBus   *events.Bus
	logger     *slog.Logger

	// mu serializes every controller call; the controller itself is not
	// safe for concurrent use.
	mu         sync.Mutex
	controller *session.Controller
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		credentials, err := requestCredentials(ctx)
		if err != nil {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="filecast"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials format", err)
			return
		}
		if credentials == "" {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="filecast"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, pass, ok := strings.Cut(credentials, ":")
		if !ok || user != username || pass != password {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="filecast"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// requestCredentials reads "user:pass" from the Authorization header, or
// from the auth query parameter for EventSource clients that cannot set
// headers.
func requestCredentials(ctx huma.Context) (string, error) {
	encoded := ctx.Query("auth")
	if header := ctx.Header("Authorization"); header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", huma.Error401Unauthorized("Invalid authentication type")
		}
		encoded = header[len(prefix):]
	}
	if encoded == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if opts.CORSOrigin != "" {
		corsConfig.AllowOrigin = opts.CORSOrigin
	}
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("filecast API", "1.0.0")
	config.Info.Description = "Stream a local video file over SRT, RTSP, RTMP or RTP through ffmpeg"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	eventBus := opts.EventBus
	if eventBus == nil {
		eventBus = events.New()
	}

	server := &Server{
		api:        api,
		mux:        mux,
		options:    opts,
		eventBus:   eventBus,
		controller: opts.Controller,
		logger:     logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Registered on the mux directly, outside huma auth
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	return server
}

// Start starts the HTTP server on the specified address
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting filecast API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	return s.httpServer.ListenAndServe()
}

// Stop closes the HTTP server. The stream session is left to StopSession.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	// Force immediate shutdown - SSE clients would hold Shutdown open
	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

// StopSession terminates the active stream session, if any, as part of
// process shutdown.
func (s *Server) StopSession() {
	if s.controller == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Shutdown()
}

// UpdateProtocols swaps the controller's protocol table, e.g. after a
// config reload. The active session keeps its URL.
func (s *Server) UpdateProtocols(table ffmpeg.ProtocolTable) error {
	if s.controller == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.SetProtocols(table)
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	s.registerSystemRoutes()
	s.registerSessionRoutes()
	s.registerSSERoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
