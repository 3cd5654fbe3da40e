//go:build windows

package selfupdate

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// scriptCommand runs the helper detached from the parent's console
func scriptCommand(scriptPath string) *exec.Cmd {
	cmd := exec.Command("cmd.exe", "/C", scriptPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
		HideWindow:    true,
	}
	return cmd
}
