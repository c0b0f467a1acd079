package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/smazurov/filecast/internal/events"
	"github.com/smazurov/filecast/internal/ffmpeg"
	"github.com/smazurov/filecast/internal/metrics"
	"github.com/smazurov/filecast/internal/process"
)

// State is the controller's lifecycle state.
type State string

// Controller states.
const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Stop reasons reported in events and metrics.
const (
	ReasonStop     = "stop"
	ReasonReplaced = "replaced"
	ReasonShutdown = "shutdown"
)

// Handle is a spawned stream process as seen by the controller.
type Handle interface {
	PID() int
	// Terminate requests a graceful stop without waiting for exit. It must
	// be safe to call on a process that already exited.
	Terminate() error
}

// SpawnFunc spawns a process from an argument vector.
type SpawnFunc func(args []string) (Handle, error)

// ProcessSpawner returns a SpawnFunc backed by process.Start.
func ProcessSpawner(logger *slog.Logger, opts ...process.Option) SpawnFunc {
	return func(args []string) (Handle, error) {
		p, err := process.Start(args, logger, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Started is returned by a successful Start.
type Started struct {
	PlaybackURL string
	PID         int
	StartedAt   time.Time
}

// Info describes the active session.
type Info struct {
	PlaybackURL string
	Protocol    ffmpeg.Protocol
	SourcePath  string
	Address     string
	Port        string
	Args        []string
	PID         int
	StartedAt   time.Time
}

type activeSession struct {
	info   Info
	handle Handle
}

// Options configures a Controller.
type Options struct {
	// Protocols is the URL template / output format table. Defaults to
	// ffmpeg.DefaultProtocols.
	Protocols ffmpeg.ProtocolTable

	// FFmpeg carries the binary, codec and log flags used for every
	// invocation. Source, format and output are filled per request.
	FFmpeg ffmpeg.Params

	// Spawn starts the transcoder. Required.
	Spawn SpawnFunc

	// EventBus receives session events (optional).
	EventBus *events.Bus

	// Logger for controller operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Controller owns at most one stream session.
//
// A Controller is not safe for concurrent use; callers serialize Start and
// Stop. The child's own exit is not observed: the session stays Active
// until Stop or a replacing Start, both of which tolerate a dead process.
type Controller struct {
	protocols ffmpeg.ProtocolTable
	params    ffmpeg.Params
	spawn     SpawnFunc
	bus       *events.Bus
	logger    *slog.Logger
	now       func() time.Time

	current *activeSession
}

// NewController creates an Idle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Spawn == nil {
		return nil, fmt.Errorf("spawn function is required")
	}

	table := opts.Protocols
	if table == nil {
		table = ffmpeg.DefaultProtocols()
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("protocol table: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		protocols: table,
		params:    opts.FFmpeg,
		spawn:     opts.Spawn,
		bus:       opts.EventBus,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start validates req, stops any active session, and spawns a new one.
//
// A *ValidationError leaves the controller exactly as it was. A
// *LaunchError leaves it Idle. The child is not bound to ctx; ctx only
// aborts Start before anything is torn down.
func (c *Controller) Start(ctx context.Context, req Request) (*Started, error) {
	v, err := validate(req, c.protocols)
	if err != nil {
		c.logger.Info("Rejected stream request", "error", err)
		metrics.StartFailed(metrics.FailureValidation)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	playbackURL, err := ffmpeg.FormatURL(c.protocols, v.protocol, v.address, v.port)
	if err != nil {
		return nil, &ValidationError{Field: FieldProtocol, Reason: "cannot format url", Err: err}
	}
	args, err := ffmpeg.StreamArgs(c.protocols, v.protocol, v.source, playbackURL, c.params)
	if err != nil {
		return nil, &ValidationError{Field: FieldProtocol, Reason: "cannot build command", Err: err}
	}

	c.teardown(ReasonReplaced)

	handle, err := c.spawn(args)
	if err != nil {
		launchErr := &LaunchError{Binary: args[0], Err: err}
		c.logger.Error("Failed to start stream", "error", launchErr, "url", playbackURL)
		metrics.StartFailed(metrics.FailureLaunch)
		c.publish(events.SessionLaunchFailedEvent{
			PlaybackURL: playbackURL,
			Error:       err.Error(),
			Timestamp:   c.timestamp(),
		})
		c.publishState()
		return nil, launchErr
	}

	started := c.now()
	c.current = &activeSession{
		handle: handle,
		info: Info{
			PlaybackURL: playbackURL,
			Protocol:    v.protocol,
			SourcePath:  v.source,
			Address:     v.address,
			Port:        v.port,
			Args:        args,
			PID:         handle.PID(),
			StartedAt:   started,
		},
	}

	c.logger.Info("Streaming started", "url", playbackURL, "protocol", v.protocol, "source", v.source, "pid", handle.PID())
	metrics.SessionStarted(string(v.protocol))
	c.publish(events.SessionStartedEvent{
		PlaybackURL: playbackURL,
		Protocol:    string(v.protocol),
		SourcePath:  v.source,
		PID:         handle.PID(),
		Timestamp:   started.Format(time.RFC3339),
	})
	c.publishState()

	return &Started{PlaybackURL: playbackURL, PID: handle.PID(), StartedAt: started}, nil
}

// Stop requests termination of the active session and returns to Idle
// without waiting for the child to exit. Stopping an Idle controller is a
// no-op.
func (c *Controller) Stop() {
	if c.teardown(ReasonStop) {
		c.publishState()
	}
}

// Shutdown is Stop for host teardown; it is reported with its own reason.
func (c *Controller) Shutdown() {
	if c.teardown(ReasonShutdown) {
		c.publishState()
	}
}

// State returns the current state.
func (c *Controller) State() State {
	if c.current == nil {
		return StateIdle
	}
	return StateActive
}

// Current returns the active session, if any.
func (c *Controller) Current() (Info, bool) {
	if c.current == nil {
		return Info{}, false
	}
	info := c.current.info
	info.Args = append([]string(nil), info.Args...)
	return info, true
}

// PlaybackURL returns the active session's URL or "".
func (c *Controller) PlaybackURL() string {
	if c.current == nil {
		return ""
	}
	return c.current.info.PlaybackURL
}

// Protocols returns the protocol table in use.
func (c *Controller) Protocols() ffmpeg.ProtocolTable {
	return c.protocols
}

// SetProtocols swaps the protocol table. The active session, if any, keeps
// running with the URL it was started with.
func (c *Controller) SetProtocols(table ffmpeg.ProtocolTable) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("protocol table: %w", err)
	}
	c.protocols = table
	return nil
}

// teardown clears the active session and requests its termination. It
// reports whether there was a session. Termination failures are logged,
// never returned.
func (c *Controller) teardown(reason string) bool {
	s := c.current
	if s == nil {
		return false
	}
	c.current = nil

	if err := s.handle.Terminate(); err != nil {
		termErr := &TerminationError{PID: s.info.PID, Err: err}
		if errors.Is(err, os.ErrProcessDone) {
			c.logger.Debug("Stream process already exited", "pid", s.info.PID)
		} else {
			c.logger.Warn("Failed to terminate stream process", "error", termErr)
			metrics.TerminationFailed()
		}
	}

	c.logger.Info("Streaming stopped", "url", s.info.PlaybackURL, "pid", s.info.PID, "reason", reason)
	metrics.SessionStopped(reason)
	c.publish(events.SessionStoppedEvent{
		PlaybackURL: s.info.PlaybackURL,
		PID:         s.info.PID,
		Reason:      reason,
		Timestamp:   c.timestamp(),
	})
	return true
}

// publishState reports the state a Start or Stop settled in. A replacing
// Start publishes only the final active state.
func (c *Controller) publishState() {
	if c.bus == nil {
		return
	}
	info, ok := c.Current()
	if !ok {
		c.bus.Publish(events.SessionStateEvent{State: string(StateIdle)})
		return
	}
	c.bus.Publish(events.SessionStateEvent{
		State:       string(StateActive),
		PlaybackURL: info.PlaybackURL,
		Protocol:    string(info.Protocol),
		SourcePath:  info.SourcePath,
		Address:     info.Address,
		Port:        info.Port,
		PID:         info.PID,
		StartedAt:   info.StartedAt,
		Command:     info.Args,
	})
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func (c *Controller) timestamp() string {
	return c.now().Format(time.RFC3339)
}
