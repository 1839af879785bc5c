// run.go - the backup orchestrator (§4.7): pre-flight checks,
// lifecycle events, fatal-error capture, exit status.
package backup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/waysnap/waysnap/internal/event"
	"github.com/waysnap/waysnap/internal/fio"
	"github.com/waysnap/waysnap/internal/ignore"
)

// Run executes one backup according to opts and returns the process
// exit code (0 on success, otherwise one of the ExitXxx constants, the
// OS errno of the first fatal filesystem error, or 1 when that error
// carries no errno).
func Run(opts Options) int {
	c := New(opts)

	if err := preflight(c.RefDir, c.TgtDir); err != nil {
		if pe, ok := err.(*PreflightError); ok {
			return exitCodeFor(pe)
		}
		return -1
	}

	c.StartTime = time.Now()
	c.emit(event.StartedBackup, event.Payload{
		"start_time": c.StartTime,
		"dryrun":     c.Dryrun,
		"verbose":    c.Verbose,
		"srcdir":     c.SrcDir,
		"refdir":     c.RefDir,
		"tgtdir":     c.TgtDir,
	})

	werr := c.walkDir(c.SrcDir, c.RefDir, c.TgtDir, ignore.Set{})

	status := 0
	if werr != nil {
		status = Errno(werr)
		if status <= 0 {
			status = 1
		}
		c.fail(c.LastDirectoryEntered, status, werr.Error())
	}

	c.FinishTime = time.Now()
	payload := event.Payload{
		"start_time":             c.StartTime,
		"finish_time":            c.FinishTime,
		"elapsed_time":           c.FinishTime.Sub(c.StartTime),
		"status":                 status,
		"directories_processed":  c.DirectoriesProcessed,
		"directories_skipped":    c.DirectoriesSkipped,
		"files_skipped":          c.FilesSkipped,
		"files_copied":           c.FilesCopied,
		"bytes_copied":           c.BytesCopied,
		"file_attributes_copied": c.FileAttributesCopied,
		"symlinks_copied":        c.SymlinksCopied,
		"links_created":          c.LinksCreated,
	}
	if status != 0 {
		payload["errno"] = c.Fault.Errno
		payload["strerror"] = c.Fault.Strerror
		payload["last_directory_entered"] = c.Fault.LastDirectoryEntered

		c.Sink.Emit(event.AbortedBackup, event.Payload{
			"errno":                  c.Fault.Errno,
			"strerror":               c.Fault.Strerror,
			"last_directory_entered": c.Fault.LastDirectoryEntered,
		})
	}
	c.Sink.Emit(event.FinishedBackup, payload)

	return status
}

// preflight validates the two invariants that must hold before any
// mutation: tgtdir is absent or empty, and refdir/tgtdir share a
// device.
func preflight(refdir, tgtdir string) error {
	st, err := fio.Lstat(tgtdir)
	switch {
	case os.IsNotExist(err):
		// absent is fine; the walker will create it.
	case err != nil:
		return &PreflightError{Op: "stat", Dst: tgtdir, Err: err}
	case !st.IsDir():
		return &PreflightError{Op: "not-a-directory", Dst: tgtdir, Err: os.ErrInvalid}
	default:
		names, err := readdirnames(tgtdir)
		if err != nil {
			return &PreflightError{Op: "readdir", Dst: tgtdir, Err: err}
		}
		if len(names) > 0 {
			return &PreflightError{Op: "not-empty", Dst: tgtdir, Err: os.ErrExist}
		}
	}

	refDev, err := deviceOf(refdir)
	if err != nil {
		return &PreflightError{Op: "stat", Dst: refdir, Err: err}
	}
	tgtDev, err := deviceOf(tgtdir)
	if err != nil {
		return &PreflightError{Op: "stat", Dst: tgtdir, Err: err}
	}
	if refDev != tgtDev {
		return &PreflightError{Op: "device-mismatch", Dst: tgtdir, Err: os.ErrInvalid}
	}
	return nil
}

// deviceOf stats path, walking up to the nearest existing ancestor
// when path itself does not yet exist.
func deviceOf(path string) (uint64, error) {
	for {
		st, err := fio.Lstat(path)
		if err == nil {
			return st.Dev, nil
		}
		if !os.IsNotExist(err) {
			return 0, err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return 0, err
		}
		path = parent
	}
}

func exitCodeFor(pe *PreflightError) int {
	switch pe.Op {
	case "not-a-directory":
		return ExitTargetNotDir
	case "not-empty":
		return ExitTargetNotEmpty
	case "device-mismatch":
		return ExitDeviceMismatch
	default:
		return Errno(pe.Err)
	}
}
