package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smazurov/filecast/internal/clipboard"
	"github.com/smazurov/filecast/internal/ffmpeg"
	"github.com/smazurov/filecast/internal/logging"
	"github.com/smazurov/filecast/internal/netaddr"
	"github.com/smazurov/filecast/internal/process"
	"github.com/smazurov/filecast/internal/session"
	"github.com/smazurov/filecast/internal/viewer"
	"github.com/spf13/cobra"
)

// Exit codes for the stream command.
const (
	exitLaunchFailed  = 1
	exitInvalidInput  = 2
	exitInterrupted   = 0
	exitUnknownResult = 1
)

// streamProcess is the part of *process.Process a foreground stream needs.
type streamProcess interface {
	session.Handle
	Done() <-chan struct{}
	ExitCode() int
	Stop(timeout time.Duration) int
}

// streamRun starts one session and supervises it until a signal arrives or
// ffmpeg exits. The controller does not watch its child, so the run keeps
// the process to notice ffmpeg exiting on its own.
type streamRun struct {
	settings Settings
	request  session.Request
	spawn    func(argv []string) (streamProcess, error)
	// announce runs once the URL is known (viewer, clipboard). It may block
	// and is cancelled when the stream stops.
	announce func(ctx context.Context, playbackURL string)
	// signals must be registered before run so an interrupt during
	// startup still stops ffmpeg.
	signals <-chan os.Signal
	out     io.Writer
	logger  *slog.Logger
}

// run returns the process exit code for the command.
func (r *streamRun) run(ctx context.Context) int {
	var proc streamProcess
	controller, err := session.NewController(session.Options{
		Protocols: r.settings.Protocols,
		FFmpeg:    r.settings.FFmpeg,
		Spawn: func(argv []string) (session.Handle, error) {
			p, err := r.spawn(argv)
			if err != nil {
				return nil, err
			}
			proc = p
			return p, nil
		},
		Logger: r.logger,
	})
	if err != nil {
		r.logger.Error("Failed to create session controller", "error", err)
		return exitLaunchFailed
	}

	started, err := controller.Start(ctx, r.request)
	if err != nil {
		r.logger.Error("Failed to start stream", "error", err)
		if errors.Is(err, session.ErrValidation) {
			return exitInvalidInput
		}
		return exitLaunchFailed
	}
	fmt.Fprintln(r.out, started.PlaybackURL)

	announceCtx, cancelAnnounce := context.WithCancel(ctx)
	defer cancelAnnounce()
	if r.announce != nil {
		go r.announce(announceCtx, started.PlaybackURL)
	}

	select {
	case sig := <-r.signals:
		cancelAnnounce()
		r.logger.Info("Received signal, stopping stream", "signal", sig)
		code := proc.Stop(r.settings.stopTimeout())
		// The child is gone; this only records the stop.
		controller.Shutdown()
		r.logger.Info("Stream command exiting", "ffmpeg_exit_code", code)
		return exitInterrupted
	case <-proc.Done():
		code := proc.ExitCode()
		r.logger.Info("ffmpeg exited", "exit_code", code)
		controller.Stop()
		if code < 0 {
			return exitUnknownResult
		}
		return code
	}
}

// CreateStreamCmd creates the stream command.
func CreateStreamCmd(settings SettingsFunc) *cobra.Command {
	var protocol string
	var address string
	var port string
	var play bool
	var copyURL bool

	cmd := &cobra.Command{
		Use:   "stream <file>",
		Short: "Stream a video file in the foreground",
		Long: `Starts ffmpeg streaming the file over the chosen protocol and prints the playback URL. ` +
			`Runs until interrupted (SIGINT/SIGTERM) or until ffmpeg exits.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			s := settings()
			logger := logging.GetLogger("session")

			if address == "" {
				address = netaddr.NewHost(logging.GetLogger("netaddr")).ListLocalAddresses(cmd.Context())[0]
				logger.Info("No address given, using first local address", "address", address)
			}

			r := &streamRun{
				settings: s,
				request: session.Request{
					SourcePath: args[0],
					Protocol:   protocol,
					Address:    address,
					Port:       port,
				},
				spawn: func(argv []string) (streamProcess, error) {
					p, err := process.Start(argv, logger, process.WithLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLine))
					if err != nil {
						return nil, err
					}
					return p, nil
				},
				announce: func(ctx context.Context, playbackURL string) {
					if play {
						launcher := viewer.New(s.ViewerPath, logging.GetLogger("viewer"))
						if _, err := launcher.Launch(ctx, playbackURL); err != nil {
							logger.Warn("Failed to launch viewer", "error", err)
						}
					}
					if copyURL {
						if err := clipboard.New(logging.GetLogger("clipboard")).Copy(ctx, playbackURL); err != nil {
							logger.Warn("Failed to copy playback URL", "error", err)
						}
					}
				},
				signals: sigCh,
				out:     cmd.OutOrStdout(),
				logger:  logger,
			}

			code := r.run(cmd.Context())
			signal.Stop(sigCh)
			os.Exit(code)
		},
	}

	cmd.Flags().StringVar(&protocol, "protocol", string(ffmpeg.ProtocolSRT), "Streaming protocol: SRT, RTSP, RTMP or RTP")
	cmd.Flags().StringVar(&address, "address", "", "Local address to bind (default: first local IPv4 address)")
	cmd.Flags().StringVar(&port, "port", "9999", "Port to stream on (1-65535)")
	cmd.Flags().BoolVar(&play, "play", false, "Open the playback URL in the viewer")
	cmd.Flags().BoolVar(&copyURL, "copy", false, "Copy the playback URL to the clipboard")

	return cmd
}
