// Package viewer launches an external media player against a playback URL.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/smazurov/filecast/internal/events"
	"github.com/smazurov/filecast/internal/metrics"
	"github.com/smazurov/filecast/internal/process"
)

// DefaultPath is the player looked up on PATH when none is configured.
const DefaultPath = "vlc"

// ErrViewerNotFound is matched by a LaunchError whose executable is missing.
var ErrViewerNotFound = errors.New("viewer executable not found")

// LaunchError reports a viewer that could not be started. It never affects
// the stream session.
type LaunchError struct {
	Viewer string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch viewer %s: %v", e.Viewer, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LaunchError) Unwrap() error { return e.Err }

// StartFunc starts a detached process and returns its PID.
type StartFunc func(args []string) (int, error)

// Launcher starts the configured viewer. It is safe for concurrent use.
type Launcher struct {
	mu       sync.RWMutex
	path     string
	lookPath func(string) (string, error)
	start    StartFunc
	bus      *events.Bus
	logger   *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(l *Launcher) { l.lookPath = fn }
}

// WithStart replaces the process starter.
func WithStart(fn StartFunc) Option {
	return func(l *Launcher) { l.start = fn }
}

// WithEventBus publishes a ViewerLaunchedEvent after each launch.
func WithEventBus(bus *events.Bus) Option {
	return func(l *Launcher) { l.bus = bus }
}

// New creates a Launcher for the player at path. An empty path means
// DefaultPath.
func New(path string, logger *slog.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Launcher{
		path:     path,
		lookPath: exec.LookPath,
		logger:   logger,
	}
	l.start = func(args []string) (int, error) {
		p, err := process.Start(args, l.logger)
		if err != nil {
			return 0, err
		}
		return p.PID(), nil
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the configured viewer path.
func (l *Launcher) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.path == "" {
		return DefaultPath
	}
	return l.path
}

// SetPath replaces the viewer path; used on config reload.
func (l *Launcher) SetPath(path string) {
	l.mu.Lock()
	l.path = path
	l.mu.Unlock()
}

// Launch starts the viewer with url as its only argument and returns
// without waiting for it. The player outlives any stream session.
func (l *Launcher) Launch(ctx context.Context, url string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if url == "" {
		return 0, &LaunchError{Viewer: l.Path(), Err: errors.New("no playback url")}
	}

	viewer := l.Path()
	resolved, err := l.lookPath(viewer)
	if err != nil {
		launchErr := &LaunchError{Viewer: viewer, Err: fmt.Errorf("%w: %w", ErrViewerNotFound, err)}
		l.logger.Warn("Viewer not found", "viewer", viewer, "error", err)
		metrics.ViewerLaunched(false)
		return 0, launchErr
	}

	pid, err := l.start([]string{resolved, url})
	if err != nil {
		l.logger.Warn("Failed to launch viewer", "viewer", resolved, "error", err)
		metrics.ViewerLaunched(false)
		return 0, &LaunchError{Viewer: resolved, Err: err}
	}

	l.logger.Info("Viewer launched", "viewer", resolved, "url", url, "pid", pid)
	metrics.ViewerLaunched(true)
	if l.bus != nil {
		l.bus.Publish(events.ViewerLaunchedEvent{
			PlaybackURL: url,
			Viewer:      resolved,
			Timestamp:   time.Now().Format(time.RFC3339),
		})
	}
	return pid, nil
}
