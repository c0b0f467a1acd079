package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/filecast/cmd"
	"github.com/smazurov/filecast/internal/api"
	"github.com/smazurov/filecast/internal/clipboard"
	"github.com/smazurov/filecast/internal/config"
	"github.com/smazurov/filecast/internal/events"
	"github.com/smazurov/filecast/internal/ffmpeg"
	"github.com/smazurov/filecast/internal/logging"
	"github.com/smazurov/filecast/internal/metrics"
	"github.com/smazurov/filecast/internal/netaddr"
	"github.com/smazurov/filecast/internal/process"
	"github.com/smazurov/filecast/internal/session"
	"github.com/smazurov/filecast/internal/systemd"
	"github.com/smazurov/filecast/internal/version"
	"github.com/smazurov/filecast/internal/viewer"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (auth is off when empty)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Media and viewer settings
	MediaDir   string `help:"Directory listed by the media endpoint" default:"" toml:"media.dir" env:"MEDIA_DIR"`
	ViewerPath string `help:"External player executable" default:"vlc" toml:"viewer.path" env:"VIEWER_PATH"`

	// FFmpeg settings
	FfmpegBinary      string `help:"ffmpeg executable" default:"ffmpeg" toml:"ffmpeg.binary" env:"FFMPEG_BINARY"`
	FfmpegVideoCodec  string `help:"Video encoder" default:"libx264" toml:"ffmpeg.video_codec" env:"FFMPEG_VIDEO_CODEC"`
	FfmpegLevelTags   bool   `help:"Tag ffmpeg output with log levels" default:"true" toml:"ffmpeg.level_tags" env:"FFMPEG_LEVEL_TAGS"`
	FfmpegStopTimeout string `help:"Foreground stream shutdown timeout" default:"5s" toml:"ffmpeg.stop_timeout" env:"FFMPEG_STOP_TIMEOUT"`

	// Observability settings
	MetricsEnabled bool `help:"Expose Prometheus metrics at /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingFfmpeg  string `help:"ffmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingViewer  string `help:"Viewer logging level" default:"info" toml:"logging.viewer" env:"LOGGING_VIEWER"`
	LoggingConfig  string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"session": o.LoggingSession,
			"ffmpeg":  o.LoggingFfmpeg,
			"api":     o.LoggingAPI,
			"http":    o.LoggingHTTP,
			"viewer":  o.LoggingViewer,
			"config":  o.LoggingConfig,
		},
	}
}

func (o *Options) ffmpegParams() ffmpeg.Params {
	return ffmpeg.Params{
		Binary:     o.FfmpegBinary,
		VideoCodec: o.FfmpegVideoCodec,
		LevelTags:  o.FfmpegLevelTags,
	}
}

func main() {
	var settings cmd.Settings
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")
		logger.Debug("filecast starting", "version", version.String())

		// Reloadable settings: protocol templates and viewer path
		protocols := ffmpeg.DefaultProtocols()
		if rt, rtErr := config.LoadRuntime(opts.Config); rtErr == nil {
			protocols = rt.Protocols
		} else if !errors.Is(rtErr, fs.ErrNotExist) {
			logger.Warn("Ignoring invalid protocol config", "config", opts.Config, "error", rtErr)
		}

		stopTimeout, parseErr := time.ParseDuration(opts.FfmpegStopTimeout)
		if parseErr != nil {
			logger.Warn("Invalid ffmpeg stop timeout, using default", "value", opts.FfmpegStopTimeout, "error", parseErr)
			stopTimeout = cmd.DefaultStopTimeout
		}

		settings = cmd.Settings{
			ConfigFile:  opts.Config,
			MediaDir:    opts.MediaDir,
			ViewerPath:  opts.ViewerPath,
			Protocols:   protocols,
			FFmpeg:      opts.ffmpegParams(),
			StopTimeout: stopTimeout,
		}

		eventBus := events.New()

		controller, ctrlErr := session.NewController(session.Options{
			Protocols: protocols,
			FFmpeg:    opts.ffmpegParams(),
			Spawn:     session.ProcessSpawner(logging.GetLogger("session"), process.WithLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLine)),
			EventBus:  eventBus,
			Logger:    logging.GetLogger("session"),
		})
		if ctrlErr != nil {
			logger.Error("Failed to create session controller", "error", ctrlErr)
			os.Exit(1)
		}

		launcher := viewer.New(opts.ViewerPath, logging.GetLogger("viewer"), viewer.WithEventBus(eventBus))

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CORSOrigin,
			Controller:   controller,
			Addresses:    netaddr.NewHost(logging.GetLogger("netaddr")),
			Viewer:       launcher,
			Clipboard:    clipboard.New(logging.GetLogger("clipboard")),
			EventBus:     eventBus,
			MediaDir:     opts.MediaDir,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = metrics.Handler()
		}

		server := api.NewServer(apiOpts)
		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		watcher := config.NewConfigWatcher(
			opts.Config,
			config.LoadRuntime,
			logging.GetLogger("config"),
			config.WithDebounce[config.Runtime](config.DefaultDebounce),
		)
		watcher.OnReload(func(rt config.Runtime) {
			notifier.Reloading()
			defer notifier.Ready()

			if updateErr := server.UpdateProtocols(rt.Protocols); updateErr != nil {
				logger.Warn("Rejected reloaded protocol table", "error", updateErr)
			}
			if rt.ViewerPath != "" {
				launcher.SetPath(rt.ViewerPath)
			}
			// After a reload the file's [logging] levels win over flags
			logging.ApplyLevels(rt.Logging)
			logger.Info("Configuration reloaded", "config", opts.Config)
		})

		hooks.OnStart(func() {
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port, "version", version.String())
			notifier.Ready()
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop ffmpeg after the HTTP server stops accepting new requests
			server.StopSession()

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
		})
	})

	current := func() cmd.Settings { return settings }
	cli.Root().AddCommand(cmd.CreateStreamCmd(current))
	cli.Root().AddCommand(cmd.CreateAddressesCmd(nil))
	cli.Root().AddCommand(cmd.CreatePlayCmd(current))
	cli.Root().AddCommand(cmd.CreateMediaCmd(current))

	cli.Root().Version = version.String()

	cli.Run()
}
