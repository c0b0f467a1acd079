// Package clipboard copies text to the desktop clipboard through the
// platform's command-line tools.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when no clipboard tool accepted the text.
var ErrUnavailable = errors.New("no clipboard tool available")

// Tool is a clipboard command that reads the text from stdin.
type Tool struct {
	Name string
	Args []string
}

// Runner runs name with args, feeding stdin.
type Runner func(ctx context.Context, name string, args []string, stdin string) error

// DefaultTools returns the clipboard commands tried on goos, in order.
func DefaultTools(goos string) []Tool {
	switch goos {
	case "darwin":
		return []Tool{{Name: "pbcopy"}}
	case "windows":
		return []Tool{{Name: "clip"}}
	default:
		return []Tool{
			{Name: "xclip", Args: []string{"-selection", "clipboard"}},
			{Name: "wl-copy"},
		}
	}
}

// Copier writes text to the clipboard.
type Copier struct {
	tools  []Tool
	run    Runner
	logger *slog.Logger
}

// Option configures a Copier.
type Option func(*Copier)

// WithTools replaces the tool list.
func WithTools(tools ...Tool) Option {
	return func(c *Copier) { c.tools = tools }
}

// WithRunner replaces the command runner.
func WithRunner(run Runner) Option {
	return func(c *Copier) { c.run = run }
}

// New creates a Copier for the current platform.
func New(logger *slog.Logger, opts ...Option) *Copier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Copier{
		tools:  DefaultTools(runtime.GOOS),
		run:    runCommand,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy tries each tool in order and stops at the first that succeeds.
func (c *Copier) Copy(ctx context.Context, text string) error {
	var errs []error
	for _, tool := range c.tools {
		c.logger.Debug("Copying to clipboard", "tool", tool.Name)
		err := c.run(ctx, tool.Name, tool.Args, text)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("Clipboard tool failed, trying next", "tool", tool.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", tool.Name, err))
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func runCommand(ctx context.Context, name string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
