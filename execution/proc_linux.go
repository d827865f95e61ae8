//go:build linux

package execution

import (
	"os/exec"
	"syscall"
)

// setPlatformSpecificAttrs makes the kernel kill the child if the server exits.
func setPlatformSpecificAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGKILL,
	}
}
