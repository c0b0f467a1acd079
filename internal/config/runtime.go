package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/filecast/internal/ffmpeg"
	"github.com/smazurov/filecast/internal/logging"
)

// Runtime holds the settings that are re-read when the config file changes.
type Runtime struct {
	Protocols  ffmpeg.ProtocolTable
	ViewerPath string
	Logging    logging.Config
}

// runtimeFile is the subset of the config file that Runtime reads.
//
//	[protocols.srt]
//	url = "srt://{address}:{port}?mode=listener&latency=200000"
//
//	[viewer]
//	path = "/usr/bin/vlc"
//
//	[logging]
//	level = "info"
//	session = "debug"
type runtimeFile struct {
	Protocols map[string]ffmpeg.ProtocolSpec `toml:"protocols"`
	Viewer    struct {
		Path string `toml:"path"`
	} `toml:"viewer"`
	Logging map[string]string `toml:"logging"`
}

// LoadRuntime reads the reloadable settings from path. Protocol entries are
// merged over the built-in table; unknown protocols and entries that leave
// a protocol without a template or format are errors.
func LoadRuntime(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, fmt.Errorf("read config: %w", err)
	}

	var file runtimeFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return Runtime{}, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	protocols, err := ffmpeg.DefaultProtocols().Merge(file.Protocols)
	if err != nil {
		return Runtime{}, fmt.Errorf("protocols: %w", err)
	}
	if err := protocols.Validate(); err != nil {
		return Runtime{}, fmt.Errorf("protocols: %w", err)
	}

	return Runtime{
		Protocols:  protocols,
		ViewerPath: file.Viewer.Path,
		Logging:    loggingFromMap(file.Logging),
	}, nil
}

// loggingFromMap splits a [logging] table into the global level and format
// and per-module levels.
func loggingFromMap(m map[string]string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	for key, value := range m {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
