// context.go - the run context: counters, fault state, and the knobs
// that shape one backup invocation.
//
// Grounded on the teacher's Info/stat split between "identity" and
// "mutable state" - here Context plays the role of a single mutable
// struct a single goroutine owns outright, so unlike fio.Info (which
// is handed around by value in places) Context is always passed by
// pointer and never copied.
package backup

import (
	"path/filepath"
	"time"

	"github.com/waysnap/waysnap/internal/event"
)

// Options are the caller-supplied knobs for one backup run.
type Options struct {
	SrcDir  string
	RefDir  string
	TgtDir  string
	Dryrun  bool
	Verbose bool
	Sink    event.Sink

	// PreserveXattr opts into replicating extended attributes in
	// addition to (uid, gid, mode, atime, mtime). Off by default.
	PreserveXattr bool

	// Excludes are shell-glob patterns matched against a basename;
	// a match skips the entry exactly as if it were in the
	// .waybackup.ignore set, without needing an ignore file on disk.
	Excludes []string
}

// excluded reports whether name's basename matches any Excludes
// pattern, grounded on the basename-glob idiom from go-fio/walk's
// own Excludes option.
func (c *Context) excluded(name string) bool {
	bn := filepath.Base(name)
	for _, pat := range c.Excludes {
		if ok, err := filepath.Match(pat, bn); err == nil && ok {
			return true
		}
	}
	return false
}

// Counters are the run's monotonically non-decreasing tallies.
type Counters struct {
	DirectoriesProcessed int64
	DirectoriesSkipped   int64
	FilesSkipped         int64
	FilesCopied          int64
	BytesCopied          int64
	FileAttributesCopied int64
	SymlinksCopied       int64
	LinksCreated         int64
}

// Fault records the first fatal OS error encountered during a run,
// if any. Populated at most once: the first error wins.
type Fault struct {
	LastDirectoryEntered string
	Errno                int
	Strerror             string
}

// Context is created once per backup run and threaded by pointer
// through the walker and file handler. It is not safe for concurrent
// use - the core is single-threaded by design.
type Context struct {
	Options

	Counters
	Fault

	StartTime  time.Time
	FinishTime time.Time
}

// New builds a fresh Context with all counters and fault state
// zeroed, ready for one run.
func New(opts Options) *Context {
	if opts.Sink == nil {
		opts.Sink = event.Nop
	}
	return &Context{Options: opts}
}

// emit dispatches to the sink, skipping verbose-gated tags when the
// run wasn't asked for them.
func (c *Context) emit(tag event.Tag, payload event.Payload) {
	if tag.Verbose() && !c.Verbose {
		return
	}
	c.Sink.Emit(tag, payload)
}

// fail records the first fatal error. Subsequent calls are no-ops -
// the first error wins, per the run context's fault-state contract.
func (c *Context) fail(dir string, errno int, strerror string) {
	if c.Fault.Errno != 0 {
		return
	}
	c.Fault = Fault{
		LastDirectoryEntered: dir,
		Errno:                errno,
		Strerror:             strerror,
	}
}
