package engine

import (
	"os/exec"
	"syscall"
)

// configureProcess keeps the engine from opening a console window.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}
