package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/filecast/internal/api/models"
	"github.com/smazurov/filecast/internal/events"
	"github.com/smazurov/filecast/internal/ffmpeg"
	"github.com/smazurov/filecast/internal/session"
	"github.com/smazurov/filecast/internal/viewer"
)

// fakeSpawner records spawned argv and terminations.
type fakeSpawner struct {
	mu         sync.Mutex
	spawned    [][]string
	terminated []int
	err        error
}

type fakeHandle struct {
	pid int
	sp  *fakeSpawner
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Terminate() error {
	h.sp.mu.Lock()
	defer h.sp.mu.Unlock()
	h.sp.terminated = append(h.sp.terminated, h.pid)
	return nil
}

func (f *fakeSpawner) spawn(args []string) (session.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.spawned = append(f.spawned, args)
	return &fakeHandle{pid: 1000 + len(f.spawned), sp: f}, nil
}

func (f *fakeSpawner) counts() (spawned, terminated int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spawned), len(f.terminated)
}

type fakeAddresses []string

func (f fakeAddresses) ListLocalAddresses(context.Context) []string { return f }

type fakeViewer struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (f *fakeViewer) Launch(_ context.Context, url string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.urls = append(f.urls, url)
	return 4300, nil
}

func (f *fakeViewer) Path() string { return "/usr/bin/vlc" }

func (f *fakeViewer) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeClipboard struct {
	mu     sync.Mutex
	copied string
	err    error
}

func (f *fakeClipboard) Copy(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.copied = text
	return nil
}

func (f *fakeClipboard) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeClipboard) text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copied
}

type testEnv struct {
	server    *Server
	ts        *httptest.Server
	spawner   *fakeSpawner
	viewer    *fakeViewer
	clipboard *fakeClipboard
	bus       *events.Bus
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		spawner:   &fakeSpawner{},
		viewer:    &fakeViewer{},
		clipboard: &fakeClipboard{},
		bus:       events.New(),
	}
	controller, err := session.NewController(session.Options{
		Spawn:    env.spawner.spawn,
		EventBus: env.bus,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}

	opts := &Options{
		Controller: controller,
		Addresses:  fakeAddresses{"192.168.1.20", "10.0.0.5"},
		Viewer:     env.viewer,
		Clipboard:  env.clipboard,
		EventBus:   env.bus,
	}
	for _, m := range mutate {
		m(opts)
	}

	env.server = NewServer(opts)
	env.ts = httptest.NewServer(env.server.mux)
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d; body: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func tempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "my clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func startBody(path string) models.StartSessionData {
	return models.StartSessionData{SourcePath: path, Protocol: "SRT", Address: "10.0.0.5", Port: "9999"}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/health", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[models.HealthData](t, resp); got.Status != "ok" {
		t.Errorf("status = %q, want ok", got.Status)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	video := tempVideo(t)

	resp := env.do(t, http.MethodGet, "/api/session", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[models.SessionData](t, resp); got.State != "idle" || got.PlaybackURL != "" {
		t.Fatalf("initial session = %+v, want idle", got)
	}

	resp = env.do(t, http.MethodPost, "/api/session", startBody(video))
	expectStatus(t, resp, http.StatusOK)
	started := decode[models.SessionData](t, resp)
	if started.State != "active" {
		t.Errorf("state = %q, want active", started.State)
	}
	if started.PlaybackURL != "srt://10.0.0.5:9999?mode=listener" {
		t.Errorf("playback_url = %q", started.PlaybackURL)
	}
	if started.PID != 1001 || started.SourcePath != video {
		t.Errorf("session = %+v", started)
	}
	if len(started.Command) == 0 || started.Command[0] != "ffmpeg" {
		t.Errorf("command = %v", started.Command)
	}

	resp = env.do(t, http.MethodGet, "/api/session", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[models.SessionData](t, resp); got.PID != 1001 {
		t.Errorf("GET session pid = %d, want 1001", got.PID)
	}

	for range 2 {
		resp = env.do(t, http.MethodDelete, "/api/session", nil)
		expectStatus(t, resp, http.StatusNoContent)
	}
	if spawned, terminated := env.spawner.counts(); spawned != 1 || terminated != 1 {
		t.Errorf("spawned=%d terminated=%d, want 1 and 1", spawned, terminated)
	}

	resp = env.do(t, http.MethodGet, "/api/session", nil)
	if got := decode[models.SessionData](t, resp); got.State != "idle" {
		t.Errorf("state after stop = %q, want idle", got.State)
	}
}

func TestStartSessionReplacesActive(t *testing.T) {
	env := newTestEnv(t)
	video := tempVideo(t)

	expectStatus(t, env.do(t, http.MethodPost, "/api/session", startBody(video)), http.StatusOK)

	body := startBody(video)
	body.Protocol = "rtmp"
	body.Port = "1935"
	resp := env.do(t, http.MethodPost, "/api/session", body)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[models.SessionData](t, resp); got.PlaybackURL != "rtmp://10.0.0.5:1935/live" || got.Protocol != "RTMP" {
		t.Errorf("replacement session = %+v", got)
	}
	if spawned, terminated := env.spawner.counts(); spawned != 2 || terminated != 1 {
		t.Errorf("spawned=%d terminated=%d, want 2 and 1", spawned, terminated)
	}
}

func TestStartSessionValidation(t *testing.T) {
	env := newTestEnv(t)
	video := tempVideo(t)

	tests := []struct {
		name     string
		mutate   func(*models.StartSessionData)
		location string
	}{
		{"non numeric port", func(b *models.StartSessionData) { b.Port = "abc" }, "body.port"},
		{"port out of range", func(b *models.StartSessionData) { b.Port = "70000" }, "body.port"},
		{"unknown protocol", func(b *models.StartSessionData) { b.Protocol = "HLS" }, "body.protocol"},
		{"missing file", func(b *models.StartSessionData) { b.SourcePath = filepath.Join(t.TempDir(), "nope.mp4") }, "body.source_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := startBody(video)
			tt.mutate(&body)
			resp := env.do(t, http.MethodPost, "/api/session", body)
			expectStatus(t, resp, http.StatusBadRequest)

			model := decode[huma.ErrorModel](t, resp)
			if len(model.Errors) != 1 || model.Errors[0].Location != tt.location {
				t.Errorf("errors = %+v, want location %s", model.Errors, tt.location)
			}
		})
	}

	if spawned, _ := env.spawner.counts(); spawned != 0 {
		t.Errorf("spawned %d processes for invalid requests", spawned)
	}
}

func TestStartSessionLaunchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.spawner.mu.Lock()
	env.spawner.err = errors.New("exec: \"ffmpeg\": executable file not found in $PATH")
	env.spawner.mu.Unlock()

	resp := env.do(t, http.MethodPost, "/api/session", startBody(tempVideo(t)))
	expectStatus(t, resp, http.StatusBadGateway)

	resp = env.do(t, http.MethodGet, "/api/session", nil)
	if got := decode[models.SessionData](t, resp); got.State != "idle" {
		t.Errorf("state after launch failure = %q, want idle", got.State)
	}
}

func TestViewerAndClipboardRequireActiveSession(t *testing.T) {
	env := newTestEnv(t)

	expectStatus(t, env.do(t, http.MethodPost, "/api/session/viewer", nil), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodPost, "/api/session/clipboard", nil), http.StatusConflict)
}

func TestLaunchViewer(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodPost, "/api/session", startBody(tempVideo(t))), http.StatusOK)

	resp := env.do(t, http.MethodPost, "/api/session/viewer", nil)
	expectStatus(t, resp, http.StatusOK)
	got := decode[models.ViewerData](t, resp)
	if got.PID != 4300 || got.Viewer != "/usr/bin/vlc" || got.PlaybackURL != "srt://10.0.0.5:9999?mode=listener" {
		t.Errorf("viewer = %+v", got)
	}

	env.viewer.fail(&viewer.LaunchError{Viewer: "vlc", Err: fmt.Errorf("%w: not in PATH", viewer.ErrViewerNotFound)})
	expectStatus(t, env.do(t, http.MethodPost, "/api/session/viewer", nil), http.StatusFailedDependency)

	// A viewer failure leaves the session running
	resp = env.do(t, http.MethodGet, "/api/session", nil)
	if state := decode[models.SessionData](t, resp).State; state != "active" {
		t.Errorf("state = %q, want active", state)
	}
}

func TestCopyPlaybackURL(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodPost, "/api/session", startBody(tempVideo(t))), http.StatusOK)

	resp := env.do(t, http.MethodPost, "/api/session/clipboard", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := env.clipboard.text(); got != "srt://10.0.0.5:9999?mode=listener" {
		t.Errorf("copied = %q", got)
	}

	env.clipboard.fail(errors.New("no clipboard tool available"))
	expectStatus(t, env.do(t, http.MethodPost, "/api/session/clipboard", nil), http.StatusFailedDependency)
}

func TestListAddresses(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/addresses", nil)
	expectStatus(t, resp, http.StatusOK)
	got := decode[models.AddressesData](t, resp)
	if got.Count != 2 || got.Addresses[0] != "192.168.1.20" || got.Addresses[1] != "10.0.0.5" {
		t.Errorf("addresses = %+v", got)
	}

	env = newTestEnv(t, func(o *Options) { o.Addresses = nil })
	resp = env.do(t, http.MethodGet, "/api/addresses", nil)
	if got := decode[models.AddressesData](t, resp); len(got.Addresses) != 1 || got.Addresses[0] != "127.0.0.1" {
		t.Errorf("fallback addresses = %v", got.Addresses)
	}
}

func TestListProtocols(t *testing.T) {
	env := newTestEnv(t)

	table := ffmpeg.DefaultProtocols()
	table[ffmpeg.ProtocolSRT] = ffmpeg.ProtocolSpec{URLTemplate: "srt://{address}:{port}?mode=listener&latency=120", Format: "mpegts"}
	if err := env.server.UpdateProtocols(table); err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, http.MethodGet, "/api/protocols", nil)
	expectStatus(t, resp, http.StatusOK)
	got := decode[models.ProtocolsData](t, resp)

	var names []string
	for _, p := range got.Protocols {
		names = append(names, p.Name)
		if p.Name == "SRT" && !strings.HasSuffix(p.URLTemplate, "latency=120") {
			t.Errorf("SRT template = %q, want updated table", p.URLTemplate)
		}
	}
	if strings.Join(names, ",") != "RTMP,RTP,RTSP,SRT" {
		t.Errorf("protocols = %v", names)
	}
}

func TestListMedia(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.MKV", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	env := newTestEnv(t, func(o *Options) { o.MediaDir = dir })

	resp := env.do(t, http.MethodGet, "/api/media", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[models.MediaData](t, resp); got.Count != 2 {
		t.Errorf("media = %+v, want 2 files", got)
	}

	env = newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodGet, "/api/media", nil), http.StatusNotFound)

	env = newTestEnv(t, func(o *Options) { o.MediaDir = filepath.Join(dir, "missing") })
	expectStatus(t, env.do(t, http.MethodGet, "/api/media", nil), http.StatusNotFound)
}

func TestBasicAuth(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.AuthUsername = "admin"
		o.AuthPassword = "secret"
	})

	expectStatus(t, env.do(t, http.MethodGet, "/api/health", nil), http.StatusOK)

	resp := env.do(t, http.MethodGet, "/api/session", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/session", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, env.ts.URL+"/api/session", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid credentials status = %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.PrometheusHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "filecast_sessions_started_total 0\n")
		})
	})
	resp := env.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "filecast_sessions_started_total") {
		t.Errorf("metrics body = %q", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.CORSOrigin = "http://panel.local" })
	resp := env.do(t, http.MethodOptions, "/api/session", nil)
	expectStatus(t, resp, http.StatusNoContent)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.AuthUsername = "test"
		o.AuthPassword = "test"
	})

	credentials := base64.StdEncoding.EncodeToString([]byte("test:test"))
	resp, err := http.Get(fmt.Sprintf("%s/api/events?auth=%s", env.ts.URL, credentials))
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	messages := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				messages <- line
			}
		}
	}()

	select {
	case msg := <-messages:
		if !strings.Contains(msg, `"state":"idle"`) {
			t.Errorf("expected idle snapshot, got: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for initial SSE message")
	}

	env.bus.Publish(events.SessionStartedEvent{
		PlaybackURL: "rtsp://10.0.0.5:8554/stream",
		Protocol:    "RTSP",
		PID:         77,
	})

	select {
	case msg := <-messages:
		if !strings.Contains(msg, "rtsp://10.0.0.5:8554/stream") || !strings.Contains(msg, `"pid":77`) {
			t.Errorf("expected session started event, got: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for session started event")
	}
}

type sseMessage struct {
	event string
	data  string
}

// readSSE forwards event/data pairs from body until it closes.
func readSSE(body io.Reader) <-chan sseMessage {
	out := make(chan sseMessage, 32)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(body)
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				out <- sseMessage{event: event, data: strings.TrimSpace(strings.TrimPrefix(line, "data:"))}
			case line == "":
				event = ""
			}
		}
	}()
	return out
}

func TestEventsStreamTracksReplacedSession(t *testing.T) {
	env := newTestEnv(t)
	video := tempVideo(t)

	resp, err := http.Get(env.ts.URL + "/api/events")
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()
	messages := readSSE(resp.Body)

	nextState := func(timeout time.Duration) (models.SessionData, bool) {
		deadline := time.After(timeout)
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					t.Fatal("SSE stream closed")
				}
				if msg.event != "session-state" {
					continue
				}
				var state models.SessionData
				if err := json.Unmarshal([]byte(msg.data), &state); err != nil {
					t.Fatalf("decode session-state %q: %v", msg.data, err)
				}
				return state, true
			case <-deadline:
				return models.SessionData{}, false
			}
		}
	}

	if snapshot, ok := nextState(2 * time.Second); !ok || snapshot.State != "idle" {
		t.Fatalf("initial snapshot = %+v (received %v), want idle", snapshot, ok)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/session", startBody(video)), http.StatusOK)
	replacement := startBody(video)
	replacement.Protocol = "RTMP"
	replacement.Port = "1935"
	expectStatus(t, env.do(t, http.MethodPost, "/api/session", replacement), http.StatusOK)

	var last models.SessionData
	for {
		state, ok := nextState(500 * time.Millisecond)
		if !ok {
			break
		}
		last = state
	}
	if last.State != "active" || last.PID != 1002 || last.PlaybackURL != "rtmp://10.0.0.5:1935/live" {
		t.Errorf("last session-state = %+v, want active rtmp session with pid 1002", last)
	}
}
