package event

import "testing"

func newAsserter(t *testing.T) func(cond bool, msg string, args ...any) {
	return func(cond bool, msg string, args ...any) {
		if !cond {
			t.Fatalf(msg, args...)
		}
	}
}

func TestVerboseDistinguishesLifecycleFromPerEntry(t *testing.T) {
	assert := newAsserter(t)

	assert(!StartedBackup.Verbose(), "STARTED_BACKUP must be a lifecycle event")
	assert(!FinishedBackup.Verbose(), "FINISHED_BACKUP must be a lifecycle event")
	assert(!AbortedBackup.Verbose(), "ABORTED_BACKUP must be a lifecycle event")
	assert(CopiedFile.Verbose(), "COPIED_FILE must be a per-entry event")
	assert(SkippedFile.Verbose(), "SKIPPED_FILE must be a per-entry event")
}

type countingSink struct{ n int }

func (c *countingSink) Emit(Tag, Payload) { c.n++ }

func TestFanoutDispatchesToEverySinkAndSkipsNil(t *testing.T) {
	assert := newAsserter(t)

	a, b := &countingSink{}, &countingSink{}
	f := Fanout{a, nil, b}
	f.Emit(CopiedFile, Payload{"name": "x"})

	assert(a.n == 1, "expected sink a to receive one event, got %d", a.n)
	assert(b.n == 1, "expected sink b to receive one event, got %d", b.n)
}

func TestNopSinkDiscardsSilently(t *testing.T) {
	Nop.Emit(CopiedFile, Payload{"name": "x"})
}
