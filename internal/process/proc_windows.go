//go:build windows

package process

import "os/exec"

func configureCommand(_ *exec.Cmd) {}

// Windows has no SIGINT for non-console children; terminate outright.
func signalStop(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func signalNumber(_ *exec.ExitError) int {
	return 0
}
