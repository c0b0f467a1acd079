package ffmpeg

import (
	"log/slog"
	"strings"
)

// ParseLogLevel extracts the log level from a line of ffmpeg output.
// With -loglevel level+info ffmpeg prints "[info] message" or
// "[component @ 0x...] [level] message". The level tag is stripped; the
// component prefix is kept. Untagged lines are reported as info.
func ParseLogLevel(line string) (level, msg string) {
	tag, rest, ok := leadingTag(line)
	if !ok {
		return "info", line
	}
	if isLogLevel(tag) {
		return tag, rest
	}

	component := line[:len(line)-len(rest)]
	if next, tail, found := leadingTag(rest); found && isLogLevel(next) {
		return next, component + tail
	}
	return "info", line
}

// SlogLevel maps an ffmpeg level name to a slog level.
func SlogLevel(level string) slog.Level {
	switch level {
	case "panic", "fatal", "error":
		return slog.LevelError
	case "warning":
		return slog.LevelWarn
	case "verbose", "debug", "trace":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// leadingTag splits "[tag] rest" into tag and rest.
func leadingTag(s string) (tag, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", s, false
	}
	end := strings.Index(s, "] ")
	if end == -1 {
		return "", s, false
	}
	return s[1:end], s[end+2:], true
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}

// ParseLine is ParseLogLevel with the level mapped to slog, suitable as a
// process.LogParser.
func ParseLine(line string) (slog.Level, string) {
	level, msg := ParseLogLevel(line)
	return SlogLevel(level), msg
}
