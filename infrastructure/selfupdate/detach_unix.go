//go:build !windows

package selfupdate

import (
	"os/exec"
	"syscall"
)

// scriptCommand runs the helper in its own session so it outlives the parent
func scriptCommand(scriptPath string) *exec.Cmd {
	cmd := exec.Command("/bin/sh", scriptPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd
}
