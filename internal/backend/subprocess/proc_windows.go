//go:build windows

package subprocess

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {
	// No process group setup needed on Windows
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
