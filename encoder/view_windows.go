//go:build windows

package encoder

import (
	"fmt"
	"os/exec"
	"syscall"
)

func revealCommand(path string) *exec.Cmd {
	cmd := exec.Command("explorer")
	// explorer parses its own command line; the default quoting breaks /select.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: fmt.Sprintf(`explorer /e, /select, "%s"`, path),
	}
	return cmd
}
