package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/filecast/internal/logging"
)

// HTTPLoggingMiddleware writes one line per request to the "http" module logger.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	method := ctx.Method()
	path := ctx.URL().Path

	next(ctx)

	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	requestURL := ctx.URL()
	if query := redactQuery(requestURL.Query()); query != "" {
		attrs = append(attrs, slog.String("query", query))
	}
	if userAgent := ctx.Header("User-Agent"); userAgent != "" {
		attrs = append(attrs, slog.String("user_agent", userAgent))
	}

	logging.GetLogger("http").LogAttrs(ctx.Context(), requestLogLevel(method, path, status), "HTTP request completed", attrs...)
}

// requestLogLevel keeps preflights and health probes out of info logs.
func requestLogLevel(method, path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case method == http.MethodOptions, path == "/api/health":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// redactQuery encodes the query with the auth credential masked.
func redactQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	if query.Has("auth") {
		query.Set("auth", "redacted")
	}
	return query.Encode()
}
