package clipboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	name  string
	args  []string
	stdin string
}

func TestCopyUsesFirstWorkingTool(t *testing.T) {
	var calls []call
	c := New(testLogger(),
		WithTools(DefaultTools("linux")...),
		WithRunner(func(_ context.Context, name string, args []string, stdin string) error {
			calls = append(calls, call{name, args, stdin})
			return nil
		}),
	)

	url := "srt://10.0.0.5:9999?mode=listener"
	if err := c.Copy(context.Background(), url); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].name != "xclip" || !slices.Equal(calls[0].args, []string{"-selection", "clipboard"}) {
		t.Errorf("call = %+v, want xclip -selection clipboard", calls[0])
	}
	if calls[0].stdin != url {
		t.Errorf("stdin = %q, want %q", calls[0].stdin, url)
	}
}

func TestCopyFallsBackToWayland(t *testing.T) {
	var names []string
	c := New(testLogger(),
		WithTools(DefaultTools("linux")...),
		WithRunner(func(_ context.Context, name string, _ []string, _ string) error {
			names = append(names, name)
			if name == "xclip" {
				return errors.New("Error: Can't open display")
			}
			return nil
		}),
	)

	if err := c.Copy(context.Background(), "rtp://10.0.0.5:5004"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if want := []string{"xclip", "wl-copy"}; !slices.Equal(names, want) {
		t.Errorf("tools tried = %v, want %v", names, want)
	}
}

func TestCopyAllToolsFail(t *testing.T) {
	c := New(testLogger(),
		WithTools(DefaultTools("linux")...),
		WithRunner(func(context.Context, string, []string, string) error {
			return errors.New("not found")
		}),
	)

	err := c.Copy(context.Background(), "rtp://10.0.0.5:5004")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Copy() error = %v, want ErrUnavailable", err)
	}
}

func TestCopyStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	c := New(testLogger(),
		WithTools(DefaultTools("linux")...),
		WithRunner(func(context.Context, string, []string, string) error {
			calls++
			cancel()
			return context.Canceled
		}),
	)

	if err := c.Copy(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Copy() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDefaultTools(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "xclip"},
		{"freebsd", "xclip"},
		{"darwin", "pbcopy"},
		{"windows", "clip"},
	}
	for _, tt := range tests {
		if got := DefaultTools(tt.goos)[0].Name; got != tt.want {
			t.Errorf("DefaultTools(%q)[0] = %q, want %q", tt.goos, got, tt.want)
		}
	}
}

func TestRunCommandFeedsStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	out := filepath.Join(t.TempDir(), "clip.txt")
	c := New(testLogger(), WithTools(Tool{Name: "sh", Args: []string{"-c", `cat > "$0"`, out}}))

	if err := c.Copy(context.Background(), "rtmp://10.0.0.5:1935/live"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "rtmp://10.0.0.5:1935/live" {
		t.Errorf("clipboard contents = %q", data)
	}
}
