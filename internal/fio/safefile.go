// safefile.go - safe file creation and unwinding on error
//
// (c) 2021 Sudhi Herle <sudhi@herle.net>
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
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// SafeFile is an io.WriteCloser which uses a temporary file that
// will be atomically renamed when there are no errors and
// caller invokes Close(). The recommended usage is:
//
//	sf, err := NewSafeFile(...)
//	... error handling
//
//	defer sf.Abort()
//
//	... write to sf ..
//	sf.Close()
//
// It is safe to call Abort on a closed SafeFile; the first call
// to Close() or Abort() seals the outcome. Similarly, it is safe
// to call Close() after Abort() - the first call to either
// takes precedence.
type SafeFile struct {
	*os.File

	// error for writes recorded once
	err  error
	name string // actual filename

	// tracks the state of this file:
	//  < 0 => aborted
	//  > 0 => closed
	//  = 0 => open and active
	closed atomic.Int64
}

// NewSafeFile opens a temporary file next to nm that will be renamed
// onto nm only once the caller calls Close() without an intervening
// write error. Unless overwrite is set, NewSafeFile refuses to
// proceed when nm already exists - this package is used exclusively
// by the copy path onto a freshly-walked target tree, where an
// existing regular file at tgtpath means a bug upstream, not a
// legitimate overwrite.
func NewSafeFile(nm string, overwrite bool, flag int, perm os.FileMode) (*SafeFile, error) {
	if st, err := Stat(nm); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("safefile: won't overwrite existing %s", nm)
		}
		if !st.Mode().IsRegular() {
			return nil, fmt.Errorf("safefile: %s is not a regular file", nm)
		}
	}

	flag, err := safefileFlags(flag)
	if err != nil {
		return nil, fmt.Errorf("safefile: %s: %w", nm, err)
	}

	tmp := tempName(nm)
	fd, err := os.OpenFile(tmp, flag, perm)
	if err != nil {
		return nil, err
	}

	return &SafeFile{File: fd, name: nm}, nil
}

// safefileFlags folds the caller's requested open flags with the two
// this type always needs (O_CREATE|O_TRUNC, since the temp file is
// always newly created) and adds O_RDWR when the caller asked for
// neither O_WRONLY nor O_RDWR. O_RDONLY is zero on Unix, so a
// read-only request is indistinguishable from "no access mode" and is
// opened O_RDWR; the O_RDONLY check below never fires.
func safefileFlags(flag int) (int, error) {
	flag |= os.O_CREATE | os.O_TRUNC

	if flag&os.O_RDONLY != 0 {
		return 0, errors.New("conflicting open mode (O_RDONLY)")
	}
	if flag&(os.O_RDWR|os.O_WRONLY) == 0 {
		flag |= os.O_RDWR
	}
	return flag, nil
}

// tempName derives a sibling temp path for nm that won't collide with
// a concurrent writer of the same target.
func tempName(nm string) string {
	return fmt.Sprintf("%s.tmp.%d.%d", nm, os.Getpid(), time.Now().UnixNano())
}

func (sf *SafeFile) isOpen() bool {
	return sf.closed.Load() == 0
}

// Attempt to write everything in 'b' and don't proceed if there was
// a previous error or the file was already closed.
func (sf *SafeFile) Write(b []byte) (int, error) {
	if sf.err != nil {
		return 0, sf.err
	}

	if !sf.isOpen() {
		return 0, fmt.Errorf("safefile: %s is not open", sf.Name())
	}

	var z int
	if z, sf.err = fullWrite(sf.File, b); sf.err != nil {
		return z, sf.err
	}
	return z, nil
}

// WriteAt writes 'b' at absolute offset 'off'
func (sf *SafeFile) WriteAt(b []byte, off int64) (int, error) {
	if sf.err != nil {
		return 0, sf.err
	}

	if !sf.isOpen() {
		return 0, fmt.Errorf("safefile: %s is not open", sf.Name())
	}
	n, err := sf.File.WriteAt(b, off)
	if err != nil {
		sf.err = err
	}
	return n, err
}

// Abort the file write and remove any temporary artifacts; it is safe
// to call Close() on a different code path; the first call to Abort() or
// Close() takes precedence.
func (sf *SafeFile) Abort() {
	n := sf.closed.Load()
	if n < 0 || n > 0 {
		return
	}

	sf.File.Close()
	os.Remove(sf.Name())
	sf.closed.Store(-1)

	// we retain any previous error in sf.err
}

// Close flushes all file data & metadata to disk, closes the file and atomically renames
// the temp file to the actual file - ONLY if there were no intervening errors.
func (sf *SafeFile) Close() error {
	if sf.err != nil {
		sf.Abort()
		return sf.err
	}

	n := sf.closed.Load()
	if n < 0 {
		if sf.err != nil {
			return sf.err
		}
		return errAborted
	}

	if n > 0 {
		return sf.err
	}

	if sf.err = sf.Sync(); sf.err != nil {
		return sf.err
	}

	if sf.err = sf.File.Close(); sf.err != nil {
		return sf.err
	}

	// mark this file as closed
	if sf.err = os.Rename(sf.Name(), sf.name); sf.err != nil {
		return sf.err
	}

	sf.closed.Store(1)

	return nil
}

func fullWrite(d *os.File, b []byte) (int, error) {
	var z int
	n := len(b)
	for n > 0 {
		m, err := d.Write(b)
		if err != nil {
			return z, fmt.Errorf("safefile: %w", err)
		}
		n -= m
		b = b[m:]
		z += m
	}
	return z, nil
}

var errAborted = errors.New("safefile: aborted; file not committed")
