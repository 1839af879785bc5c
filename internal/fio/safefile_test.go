// safefile_test.go - tests for the atomic temp-then-rename write path.
//
// (c) 2024- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package fio

import (
	"os"
	"path/filepath"
	"testing"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...any) {
	return func(cond bool, msg string, args ...any) {
		if !cond {
			t.Fatalf(msg, args...)
		}
	}
}

func TestSafeFileCommitsOnClose(t *testing.T) {
	assert := newAsserter(t)
	fn := filepath.Join(t.TempDir(), "out")

	sf, err := NewSafeFile(fn, false, 0, 0600)
	assert(err == nil, "create safefile: %s", err)

	n, err := sf.Write([]byte("hello world"))
	assert(err == nil, "write: %s", err)
	assert(n == 11, "partial write: %d", n)

	assert(sf.Close() == nil, "close: %s", err)

	got, err := os.ReadFile(fn)
	assert(err == nil, "read back %s: %s", fn, err)
	assert(string(got) == "hello world", "content mismatch: %q", got)
}

func TestSafeFileAbortLeavesNoFile(t *testing.T) {
	assert := newAsserter(t)
	fn := filepath.Join(t.TempDir(), "out")

	sf, err := NewSafeFile(fn, false, 0, 0600)
	assert(err == nil, "create safefile: %s", err)

	_, err = sf.Write([]byte("never committed"))
	assert(err == nil, "write: %s", err)

	sf.Abort()

	_, err = os.Stat(fn)
	assert(os.IsNotExist(err), "expected %s to not exist after abort, err=%v", fn, err)

	err = sf.Close()
	assert(err == errAborted, "expected errAborted after Abort+Close, got %v", err)
}

func TestSafeFileRefusesOverwriteWithoutOpt(t *testing.T) {
	assert := newAsserter(t)
	fn := filepath.Join(t.TempDir(), "existing")
	assert(os.WriteFile(fn, []byte("old"), 0600) == nil, "seed file")

	_, err := NewSafeFile(fn, false, 0, 0600)
	assert(err != nil, "expected NewSafeFile to refuse overwriting %s", fn)

	sf, err := NewSafeFile(fn, true, 0, 0600)
	assert(err == nil, "expected overwrite=true to permit overwrite: %s", err)
	assert(sf.Close() == nil, "close: %s", err)
}
