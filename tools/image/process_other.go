//go:build !unix

package image

import "os/exec"

// Without process groups, killing the direct child is the best we can do.
// Helper processes forked by the emulator may stay behind.

func processGroupEnable(cmd *exec.Cmd) {}

func processGroupKill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
