// Package logging provides structured logging with per-module log levels.
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Output goes to stdout (text or json) and, when journald is reachable, to
// the systemd journal under the "filecast" identifier.
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"session": "debug",
//			"ffmpeg":  "warn",
//		},
//	})
//
//	logger := logging.GetLogger("session")
//	logger.Info("Session started", "url", url)
//
// Loggers obtained before Initialize are cached and pick up the configured
// level once Initialize runs. Levels can be changed at runtime with
// SetModuleLevel, which the serve command uses on config reload.
//
// Journal entries can be filtered by module:
//
//	journalctl -t filecast MODULE=session
package logging
