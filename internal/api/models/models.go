package models

import (
	"time"

	"github.com/smazurov/filecast/internal/media"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Address models
type AddressesData struct {
	Addresses []string `json:"addresses" example:"[\"192.168.1.20\"]" doc:"Local IPv4 addresses a stream can bind to"`
	Count     int      `json:"count" example:"1" doc:"Number of addresses"`
}

type AddressesResponse struct {
	Body AddressesData
}

// Protocol models
type ProtocolInfo struct {
	Name        string `json:"name" example:"SRT" doc:"Protocol name"`
	URLTemplate string `json:"url_template" example:"srt://{address}:{port}?mode=listener" doc:"Playback URL template"`
	Format      string `json:"format" example:"mpegts" doc:"ffmpeg output format"`
}

type ProtocolsData struct {
	Protocols []ProtocolInfo `json:"protocols" doc:"Supported protocols"`
}

type ProtocolsResponse struct {
	Body ProtocolsData
}

// Media models
type MediaData struct {
	Dir   string       `json:"dir" example:"/srv/videos" doc:"Media directory"`
	Files []media.File `json:"files" doc:"Video files available for streaming"`
	Count int          `json:"count" example:"3" doc:"Number of files"`
}

type MediaResponse struct {
	Body MediaData
}

// Session models
type SessionData struct {
	State       string    `json:"state" enum:"idle,active" example:"active" doc:"Controller state"`
	PlaybackURL string    `json:"playback_url,omitempty" example:"srt://10.0.0.5:9999?mode=listener" doc:"URL to open in a player"`
	Protocol    string    `json:"protocol,omitempty" example:"SRT" doc:"Streaming protocol"`
	SourcePath  string    `json:"source_path,omitempty" example:"/srv/videos/clip.mp4" doc:"File being streamed"`
	Address     string    `json:"address,omitempty" example:"10.0.0.5" doc:"Bind address"`
	Port        string    `json:"port,omitempty" example:"9999" doc:"Bind port"`
	PID         int       `json:"pid,omitempty" example:"4242" doc:"ffmpeg process ID"`
	StartedAt   time.Time `json:"started_at,omitzero" doc:"When the session started"`
	Command     []string  `json:"command,omitempty" doc:"ffmpeg argument vector"`
}

type SessionResponse struct {
	Body SessionData
}

type StartSessionData struct {
	SourcePath string `json:"source_path" minLength:"1" example:"/srv/videos/clip.mp4" doc:"Local video file"`
	Protocol   string `json:"protocol" example:"SRT" doc:"SRT, RTSP, RTMP or RTP (case-insensitive)"`
	Address    string `json:"address" example:"10.0.0.5" doc:"Local IPv4 address to bind"`
	Port       string `json:"port" example:"9999" doc:"Port, 1-65535"`
}

type StartSessionRequest struct {
	Body StartSessionData
}

// Viewer models
type ViewerData struct {
	Viewer      string `json:"viewer" example:"/usr/bin/vlc" doc:"Player executable"`
	PID         int    `json:"pid" example:"4300" doc:"Player process ID"`
	PlaybackURL string `json:"playback_url" example:"srt://10.0.0.5:9999?mode=listener" doc:"URL handed to the player"`
}

type ViewerResponse struct {
	Body ViewerData
}

// Clipboard models
type ClipboardData struct {
	PlaybackURL string `json:"playback_url" example:"srt://10.0.0.5:9999?mode=listener" doc:"Copied URL"`
}

type ClipboardResponse struct {
	Body ClipboardData
}
