//go:build !windows

package engine

import "os/exec"

// configureProcess is a no-op outside Windows.
func configureProcess(_ *exec.Cmd) {}
