package ffmpeg

// Params holds everything needed to build a file-to-network ffmpeg invocation.
type Params struct {
	// Binary is the ffmpeg executable (name on PATH or absolute path).
	Binary string

	// Input
	SourcePath string // local file, passed as a single argv element

	// Encoding
	VideoCodec string // libx264 unless configured otherwise

	// Output
	Format    string // -f value: mpegts, rtsp, flv, rtp
	OutputURL string // playback URL

	// LevelTags prefixes output lines with "[level]" so ParseLogLevel can
	// route them to the right slog level.
	LevelTags bool
}

// Default values for Params fields left empty.
const (
	DefaultBinary     = "ffmpeg"
	DefaultVideoCodec = "libx264"
)
