// Package process spawns and tracks a single subprocess.
//
// A Process is started from an argument vector with exec, never through a
// shell, so file names with spaces or metacharacters stay one argument.
// Start returns as soon as the child exists; output is streamed into a
// logger (optionally through a LogParser) and the child is reaped in the
// background.
//
// Terminate is fire-and-forget: it sends SIGINT to the child's process
// group on Unix and returns immediately. Calling it on a child that has
// already exited yields os.ErrProcessDone. Stop is the blocking variant
// for foreground commands: SIGINT, wait, then SIGKILL.
//
//	proc, err := process.Start([]string{"ffmpeg", "-re", "-i", path, ...}, logger,
//	    process.WithLogParser(logging.GetLogger("ffmpeg"), parser))
//	if err != nil {
//	    return err
//	}
//	defer proc.Terminate()
package process
