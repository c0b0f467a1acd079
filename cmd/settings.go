package cmd

import (
	"time"

	"github.com/smazurov/filecast/internal/ffmpeg"
)

// Settings are the resolved root options the subcommands run with.
type Settings struct {
	ConfigFile  string
	MediaDir    string
	ViewerPath  string
	Protocols   ffmpeg.ProtocolTable
	FFmpeg      ffmpeg.Params
	StopTimeout time.Duration
}

// SettingsFunc returns the settings once the root command has parsed its
// flags, environment and config file.
type SettingsFunc func() Settings

// DefaultStopTimeout bounds how long a foreground stream waits for ffmpeg
// to exit after SIGINT before killing it.
const DefaultStopTimeout = 5 * time.Second

func (s Settings) stopTimeout() time.Duration {
	if s.StopTimeout <= 0 {
		return DefaultStopTimeout
	}
	return s.StopTimeout
}
