//go:build !windows

package reload

import (
	"os/exec"
	"syscall"
)

// shellCommand runs command through sh in its own process group, so that
// killProcess also reaches processes spawned by the command.
func shellCommand(command string) *exec.Cmd {
	cmd := exec.Command("sh", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
