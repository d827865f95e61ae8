//go:build !linux

package execution

import "os/exec"

// Pdeathsig only exists on Linux. Elsewhere the context cancellation of
// exec.CommandContext is the only thing that stops the child.
func setPlatformSpecificAttrs(cmd *exec.Cmd) {}
