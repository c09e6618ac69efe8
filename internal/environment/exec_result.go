package environment

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ExecResult describes one command execution. It doubles as the error returned
// when a command fails, so callers can errors.As it out of Run's error.
// Stdout and Stderr are nil unless output was captured.
type ExecResult struct {
	Cmd        []string
	CmdText    string
	Stdout     []byte
	Stderr     []byte
	ReturnCode int
	ID         uuid.UUID
}

func newExecResult(cmd []string, stdout, stderr []byte, returnCode int) *ExecResult {
	return &ExecResult{
		ID:         uuid.New(),
		Cmd:        cmd,
		CmdText:    FormatCommand(cmd),
		Stdout:     stdout,
		Stderr:     stderr,
		ReturnCode: returnCode,
	}
}

// Success reports whether the command exited with status zero.
func (r *ExecResult) Success() bool {
	return r.ReturnCode == 0
}

func (r *ExecResult) Error() string {
	switch {
	case r.ReturnCode != 0:
		return fmt.Sprintf("'%s' failed with return code %d", r.CmdText, r.ReturnCode)
	case len(r.Stderr) > 0:
		return fmt.Sprintf("'%s' said: %s", r.CmdText, r.Stderr)
	case len(r.Stdout) > 0:
		return fmt.Sprintf("'%s' said: %s", r.CmdText, r.Stdout)
	default:
		return fmt.Sprintf("'%s' succeeded", r.CmdText)
	}
}

// FormatCommand renders argv for humans; components with spaces or quotes are
// double-quoted with inner double quotes escaped.
func FormatCommand(cmd []string) string {
	comps := make([]string, 0, len(cmd))
	for _, comp := range cmd {
		if strings.ContainsAny(comp, ` "'`) {
			comp = `"` + strings.ReplaceAll(comp, `"`, `\"`) + `"`
		}
		comps = append(comps, comp)
	}
	return strings.Join(comps, " ")
}
