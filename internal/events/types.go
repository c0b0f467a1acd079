package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeSessionStarted uint32 = iota + 1
	TypeSessionStopped
	TypeSessionLaunchFailed
	TypeViewerLaunched
	TypeSessionState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStartedEvent is published after ffmpeg has been spawned.
type SessionStartedEvent struct {
	PlaybackURL string `json:"playback_url" example:"srt://10.0.0.5:9999?mode=listener" doc:"Playback URL"`
	Protocol    string `json:"protocol" example:"SRT" doc:"Streaming protocol"`
	SourcePath  string `json:"source_path" example:"/videos/clip.mp4" doc:"Source file"`
	PID         int    `json:"pid" example:"4242" doc:"ffmpeg process ID"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStartedEvent.
func (e SessionStartedEvent) Type() uint32 { return TypeSessionStarted }

// SessionStoppedEvent is published once termination has been requested.
type SessionStoppedEvent struct {
	PlaybackURL string `json:"playback_url" doc:"Playback URL of the stopped session"`
	PID         int    `json:"pid" doc:"ffmpeg process ID"`
	Reason      string `json:"reason" example:"stop" doc:"stop, replaced or shutdown"`
	Timestamp   string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStoppedEvent.
func (e SessionStoppedEvent) Type() uint32 { return TypeSessionStopped }

// SessionLaunchFailedEvent is published when ffmpeg could not be spawned.
type SessionLaunchFailedEvent struct {
	PlaybackURL string `json:"playback_url" doc:"URL the session would have served"`
	Error       string `json:"error" doc:"OS error text"`
	Timestamp   string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionLaunchFailedEvent.
func (e SessionLaunchFailedEvent) Type() uint32 { return TypeSessionLaunchFailed }

// ViewerLaunchedEvent is published after the external player was started.
type ViewerLaunchedEvent struct {
	PlaybackURL string `json:"playback_url" doc:"URL handed to the player"`
	Viewer      string `json:"viewer" doc:"Player executable"`
	Timestamp   string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ViewerLaunchedEvent.
func (e ViewerLaunchedEvent) Type() uint32 { return TypeViewerLaunched }

// SessionStateEvent carries the controller state after every completed
// Start or Stop. Started/stopped events of one replacing Start may be
// delivered in either order; state events are delivered in publish order.
type SessionStateEvent struct {
	State       string    `json:"state" enum:"idle,active" doc:"Controller state"`
	PlaybackURL string    `json:"playback_url,omitempty" doc:"URL to open in a player"`
	Protocol    string    `json:"protocol,omitempty" doc:"Streaming protocol"`
	SourcePath  string    `json:"source_path,omitempty" doc:"File being streamed"`
	Address     string    `json:"address,omitempty" doc:"Bind address"`
	Port        string    `json:"port,omitempty" doc:"Bind port"`
	PID         int       `json:"pid,omitempty" doc:"ffmpeg process ID"`
	StartedAt   time.Time `json:"started_at,omitzero" doc:"When the session started"`
	Command     []string  `json:"command,omitempty" doc:"ffmpeg argument vector"`
}

// Type returns the event type identifier for SessionStateEvent.
func (e SessionStateEvent) Type() uint32 { return TypeSessionState }
