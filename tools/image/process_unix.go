//go:build unix

package image

import (
	"os/exec"
	"syscall"
)

// Emulators tend to fork helper processes. Put the command into its own
// process group so one kill reaches all of them, and use SIGINT so the
// emulator gets a chance to restore the terminal.

func processGroupEnable(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func processGroupKill(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
}
