package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waysnap/waysnap/internal/event"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...any) {
	return func(cond bool, msg string, args ...any) {
		if !cond {
			t.Fatalf(msg, args...)
		}
	}
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Emit(tag event.Tag, payload event.Payload) {
	r.events = append(r.events, string(tag))
}

func mkfile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// freshSetup lays out srcdir/refdir/tgtdir as siblings under one
// tempdir so they always share a device.
func freshSetup(t *testing.T) (srcdir, refdir, tgtdir string) {
	t.Helper()
	root := t.TempDir()
	srcdir = filepath.Join(root, "src")
	refdir = filepath.Join(root, "ref")
	tgtdir = filepath.Join(root, "tgt")
	for _, d := range []string{srcdir, refdir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	return
}

func TestRunNewTreeCopiesEverything(t *testing.T) {
	assert := newAsserter(t)

	srcdir, refdir, tgtdir := freshSetup(t)
	mkfile(t, filepath.Join(srcdir, "a.txt"), "hello")

	sink := &recordingSink{}
	status := Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir, Sink: sink})
	assert(status == 0, "expected success, got status %d", status)

	got, err := os.ReadFile(filepath.Join(tgtdir, "a.txt"))
	assert(err == nil, "expected a.txt in target: %v", err)
	assert(string(got) == "hello", "unexpected content %q", got)
}

func TestRunUnchangedTreeLinksInsteadOfCopying(t *testing.T) {
	assert := newAsserter(t)

	root := t.TempDir()
	srcdir := filepath.Join(root, "src")
	refdir := filepath.Join(root, "ref")
	tgtdir := filepath.Join(root, "tgt")
	if err := os.MkdirAll(srcdir, 0755); err != nil {
		t.Fatal(err)
	}

	mkfile(t, filepath.Join(srcdir, "a.txt"), "same")

	// first backup: srcdir -> refdir (no reference yet, so it copies)
	status := Run(Options{SrcDir: srcdir, RefDir: filepath.Join(root, "norefyet"), TgtDir: refdir})
	assert(status == 0, "seed backup failed with status %d", status)

	// second backup: srcdir unchanged, refdir is now the previous snapshot
	status = Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir})
	assert(status == 0, "second backup failed with status %d", status)

	srcSt, err := os.Stat(filepath.Join(srcdir, "a.txt"))
	assert(err == nil, "%v", err)
	refSt, err := os.Stat(filepath.Join(refdir, "a.txt"))
	assert(err == nil, "%v", err)
	tgtSt, err := os.Stat(filepath.Join(tgtdir, "a.txt"))
	assert(err == nil, "%v", err)

	_ = srcSt
	sameInode := os.SameFile(refSt, tgtSt)
	assert(sameInode, "expected tgt/a.txt to be hard-linked to ref/a.txt")
}

func TestRunContentChangeForcesFreshCopy(t *testing.T) {
	assert := newAsserter(t)

	root := t.TempDir()
	srcdir := filepath.Join(root, "src")
	refdir := filepath.Join(root, "ref")
	tgtdir := filepath.Join(root, "tgt")
	if err := os.MkdirAll(srcdir, 0755); err != nil {
		t.Fatal(err)
	}

	mkfile(t, filepath.Join(srcdir, "a.txt"), "v1")
	status := Run(Options{SrcDir: srcdir, RefDir: filepath.Join(root, "norefyet"), TgtDir: refdir})
	assert(status == 0, "seed backup failed with status %d", status)

	future := time.Now().Add(time.Hour)
	mkfile(t, filepath.Join(srcdir, "a.txt"), "v2, longer content")
	if err := os.Chtimes(filepath.Join(srcdir, "a.txt"), future, future); err != nil {
		t.Fatal(err)
	}

	status = Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir})
	assert(status == 0, "second backup failed with status %d", status)

	refSt, err := os.Stat(filepath.Join(refdir, "a.txt"))
	assert(err == nil, "%v", err)
	tgtSt, err := os.Stat(filepath.Join(tgtdir, "a.txt"))
	assert(err == nil, "%v", err)
	assert(!os.SameFile(refSt, tgtSt), "changed content must not be hard-linked")

	got, err := os.ReadFile(filepath.Join(tgtdir, "a.txt"))
	assert(err == nil, "%v", err)
	assert(string(got) == "v2, longer content", "unexpected content %q", got)
}

func TestRunIgnorePruning(t *testing.T) {
	assert := newAsserter(t)

	srcdir, refdir, tgtdir := freshSetup(t)
	if err := os.MkdirAll(filepath.Join(srcdir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}
	mkfile(t, filepath.Join(srcdir, "junk", "trash.txt"), "discard me")
	mkfile(t, filepath.Join(srcdir, ".waybackup.ignore"), "junk\n")

	status := Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir})
	assert(status == 0, "expected success, got status %d", status)

	_, err := os.Stat(filepath.Join(tgtdir, "junk"))
	assert(os.IsNotExist(err), "expected tgt/junk to be absent, got err=%v", err)
}

func TestRunTargetNonEmptyAborts(t *testing.T) {
	assert := newAsserter(t)

	srcdir, refdir, tgtdir := freshSetup(t)
	if err := os.MkdirAll(tgtdir, 0755); err != nil {
		t.Fatal(err)
	}
	mkfile(t, filepath.Join(tgtdir, "leftover"), "x")

	status := Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir})
	assert(status == ExitTargetNotEmpty, "expected exit %d, got %d", ExitTargetNotEmpty, status)
}

func TestRunTargetNotDirectoryAborts(t *testing.T) {
	assert := newAsserter(t)

	srcdir, refdir, tgtdir := freshSetup(t)
	mkfile(t, tgtdir, "not a directory")

	status := Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir})
	assert(status == ExitTargetNotDir, "expected exit %d, got %d", ExitTargetNotDir, status)
}

func TestRunDryrunMutatesNothing(t *testing.T) {
	assert := newAsserter(t)

	srcdir, refdir, tgtdir := freshSetup(t)
	mkfile(t, filepath.Join(srcdir, "a.txt"), "hello")

	status := Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir, Dryrun: true})
	assert(status == 0, "expected success, got status %d", status)

	_, err := os.Stat(tgtdir)
	assert(os.IsNotExist(err), "dryrun must not create tgtdir, err=%v", err)
}

func TestRunMetadataOnlyChangeLinksAndRefreshesAttributes(t *testing.T) {
	assert := newAsserter(t)

	root := t.TempDir()
	srcdir := filepath.Join(root, "src")
	refdir := filepath.Join(root, "ref")
	tgtdir := filepath.Join(root, "tgt")
	if err := os.MkdirAll(srcdir, 0755); err != nil {
		t.Fatal(err)
	}

	mkfile(t, filepath.Join(srcdir, "a.txt"), "same content")
	status := Run(Options{SrcDir: srcdir, RefDir: filepath.Join(root, "norefyet"), TgtDir: refdir})
	assert(status == 0, "seed backup failed with status %d", status)

	if err := os.Chmod(filepath.Join(srcdir, "a.txt"), 0600); err != nil {
		t.Fatal(err)
	}

	status = Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir})
	assert(status == 0, "second backup failed with status %d", status)

	refSt, err := os.Stat(filepath.Join(refdir, "a.txt"))
	assert(err == nil, "%v", err)
	tgtSt, err := os.Stat(filepath.Join(tgtdir, "a.txt"))
	assert(err == nil, "%v", err)
	assert(os.SameFile(refSt, tgtSt), "mode-only change must still be hard-linked, not copied")
	assert(tgtSt.Mode().Perm() == 0600, "expected refreshed mode 0600, got %o", tgtSt.Mode().Perm())
}

func TestRunEmitsLifecycleEventsInOrder(t *testing.T) {
	assert := newAsserter(t)

	srcdir, refdir, tgtdir := freshSetup(t)
	mkfile(t, filepath.Join(srcdir, "a.txt"), "hello")

	sink := &recordingSink{}
	status := Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir, Sink: sink})
	assert(status == 0, "expected success, got status %d", status)

	assert(len(sink.events) >= 2, "expected at least start+finish events, got %v", sink.events)
	assert(sink.events[0] == string(event.StartedBackup), "first event must be STARTED_BACKUP, got %s", sink.events[0])
	assert(sink.events[len(sink.events)-1] == string(event.FinishedBackup), "last event must be FINISHED_BACKUP, got %s", sink.events[len(sink.events)-1])
}

func TestRunFreshCopyDoesNotEmitCopiedAttributes(t *testing.T) {
	assert := newAsserter(t)

	srcdir, refdir, tgtdir := freshSetup(t)
	mkfile(t, filepath.Join(srcdir, "a.txt"), "hello")

	sink := &recordingSink{}
	status := Run(Options{SrcDir: srcdir, RefDir: refdir, TgtDir: tgtdir, Verbose: true, Sink: sink})
	assert(status == 0, "expected success, got status %d", status)

	for _, e := range sink.events {
		assert(e != string(event.CopiedAttributes), "fresh copy must not emit COPIED_ATTRIBUTES, got %v", sink.events)
	}
}

func TestRunAbortedBackupEmittedOnFatalError(t *testing.T) {
	assert := newAsserter(t)

	root := t.TempDir()
	missingSrc := filepath.Join(root, "does-not-exist")
	refdir := filepath.Join(root, "ref")
	tgtdir := filepath.Join(root, "tgt")
	assert(os.MkdirAll(refdir, 0755) == nil, "mkdir refdir")

	sink := &recordingSink{}
	status := Run(Options{SrcDir: missingSrc, RefDir: refdir, TgtDir: tgtdir, Sink: sink})
	assert(status != 0, "expected non-zero exit status for a missing srcdir")

	found := false
	for _, e := range sink.events {
		if e == string(event.AbortedBackup) {
			found = true
		}
	}
	assert(found, "expected ABORTED_BACKUP to be emitted on a fatal error, got %v", sink.events)
}
