// errors.go - exit-code mapping and the orchestrator's own
// pre-flight error type.
//
// Grounded on github.com/opencoff/go-fio's CopyError (errors.go):
// a small struct carrying Op/Src/Dst/Err with Error()/Unwrap(), here
// specialized to the orchestrator's own two pre-flight failure modes
// instead of fio's copy failures.
package backup

import (
	"errors"
	"fmt"
	"syscall"
)

// Exit codes reserved by the orchestrator's pre-flight checks. The
// CLI uses 1 for its own usage errors; Run can also return 1, as the
// errno of EPERM or when a fatal walk error carries no errno at all.
const (
	ExitSuccess        = 0
	ExitTargetNotDir   = 2
	ExitTargetNotEmpty = 3
	ExitDeviceMismatch = 5
)

// PreflightError reports a failed pre-flight invariant.
type PreflightError struct {
	Op  string
	Dst string
	Err error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("backup: %s %s: %s", e.Op, e.Dst, e.Err.Error())
}

func (e *PreflightError) Unwrap() error { return e.Err }

var _ error = &PreflightError{}

// Errno extracts the OS errno underlying err: 0 if err is nil, -1 if
// err carries no syscall.Errno anywhere in its chain.
func Errno(err error) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}
