package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output.
type LogParser func(line string) (level slog.Level, msg string)

// ErrNotStarted is returned by operations on a process that never started.
var ErrNotStarted = errors.New("process not started")

// Process is a single spawned subprocess. It is started from an argument
// vector, never through a shell.
type Process struct {
	cmd           *exec.Cmd
	logger        *slog.Logger
	processLogger *slog.Logger // logger for process output (nil = use logger)
	logParser     LogParser
	outputHandler OutputHandler

	done     chan struct{}
	exitMu   sync.Mutex
	exitErr  error
	exitCode int
}

// Option configures a Process.
type Option func(*Process)

// WithLogParser routes subprocess output through parser into logger.
func WithLogParser(logger *slog.Logger, parser LogParser) Option {
	return func(p *Process) {
		p.processLogger = logger
		p.logParser = parser
	}
}

// WithOutputHandler forwards every output line to handler.
func WithOutputHandler(handler OutputHandler) Option {
	return func(p *Process) {
		p.outputHandler = handler
	}
}

// Start spawns args[0] with args[1:] and returns once the OS has created
// the child. Output is streamed and the child is reaped in the background;
// Start never waits for the child to exit.
func Start(args []string, logger *slog.Logger, opts ...Option) (*Process, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Process{
		logger:   logger,
		done:     make(chan struct{}),
		exitCode: -1,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.cmd = exec.Command(args[0], args[1:]...)
	configureCommand(p.cmd)

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		p.logger.Error("Failed to start process", "error", err, "binary", args[0])
		return nil, err
	}

	p.logger.Info("Process started", "pid", p.cmd.Process.Pid, "args", args)

	var outputWG sync.WaitGroup
	outputWG.Add(2)
	go func() {
		defer outputWG.Done()
		p.streamOutput(stdout, "stdout")
	}()
	go func() {
		defer outputWG.Done()
		p.streamOutput(stderr, "stderr")
	}()

	// Pipes must be drained before Wait closes them.
	go func() {
		outputWG.Wait()
		err := p.cmd.Wait()
		p.exitMu.Lock()
		p.exitErr = err
		p.exitCode = exitCodeFromError(err)
		p.exitMu.Unlock()
		p.logger.Info("Process exited", "pid", p.cmd.Process.Pid, "exit_code", p.exitCode)
		close(p.done)
	}()

	return p, nil
}

// PID returns the child's process ID.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Done is closed once the child has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the child has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code, or -1 while the child is running.
func (p *Process) ExitCode() int {
	p.exitMu.Lock()
	defer p.exitMu.Unlock()
	return p.exitCode
}

// Terminate requests a graceful stop and returns without waiting.
// A child that already exited yields os.ErrProcessDone.
func (p *Process) Terminate() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return ErrNotStarted
	}
	if p.Exited() {
		return os.ErrProcessDone
	}
	p.logger.Info("Requesting process termination", "pid", p.cmd.Process.Pid)
	return signalStop(p.cmd)
}

// Kill force-kills the child.
func (p *Process) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return ErrNotStarted
	}
	if p.Exited() {
		return os.ErrProcessDone
	}
	return killGroup(p.cmd)
}

// Wait blocks until the child exits or ctx is done and returns the exit code.
func (p *Process) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		return p.ExitCode(), nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Stop requests graceful termination and waits up to timeout before
// force-killing. Used by foreground commands that own the child's lifetime.
func (p *Process) Stop(timeout time.Duration) int {
	if err := p.Terminate(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to signal process", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	code, err := p.Wait(ctx)
	cancel()
	if err == nil {
		return code
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("Failed to kill process", "error", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := p.Wait(ctx); err != nil {
		p.logger.Error("Process did not exit after kill signal")
	}
	return 137
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		// Killed by signal
		return 128 + signalNumber(exitErr)
	}
	return 1
}

// streamOutput logs each output line at the level the parser reports.
func (p *Process) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)

	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		if p.outputHandler != nil {
			p.outputHandler.HandleLine(source, line)
		}

		level, msg := slog.LevelInfo, line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}
		logger.Log(context.Background(), level, msg, "source", source)
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "source", source, "error", err)
	}
}
