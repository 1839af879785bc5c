// tuple.go - the metadata tuple two filesystem entries are compared
// by, and the equivalence predicate the hardlink optimization rests
// on.
//
// Grounded on github.com/opencoff/go-fio/cmp's IgnoreFlag bitmask
// (cmp.go) generalized from "attributes cmp.DirCmp ignores when
// diffing two trees" to "attributes the reconciler's own link-vs-copy
// decision ignores" - this package uses the original six-field
// mtime/ctime/size/mode/uid/gid tuple straight from the waybackup
// source rather than cmp's nlink/xattr-inclusive equality check,
// since the two predicates serve different purposes.
package fsmeta

import (
	"io/fs"
	"time"

	"github.com/waysnap/waysnap/internal/fio"
)

// Tuple is the (mtime, ctime, size, mode, uid, gid) metadata used to
// decide whether a source file is equivalent to its reference
// counterpart.
type Tuple struct {
	Mtime time.Time
	Ctime time.Time
	Size  int64
	Mode  fs.FileMode
	Uid   uint32
	Gid   uint32
}

// Of extracts the comparison tuple from a stat'd Info.
func Of(fi *fio.Info) Tuple {
	return Tuple{
		Mtime: fi.Mtim,
		Ctime: fi.Ctim,
		Size:  fi.Siz,
		Mode:  fi.Mode(),
		Uid:   fi.Uid,
		Gid:   fi.Gid,
	}
}

// IgnoreFlag selectively relaxes the equivalence predicate below. By
// default no attribute is ignored; an operator restoring across
// hosts (where uid/gid numbering differs) can loosen the check.
type IgnoreFlag uint

const (
	IgnoreUID IgnoreFlag = 1 << iota
	IgnoreGID
)

// Equivalent implements the metadata-equivalence decision rule: true
// iff none of the six checks below fire, evaluated in order with
// short-circuit. mtime/ctime use strict '>' (src newer than ref) so
// that a source restored to an older state than the reference does
// not force an unnecessary copy; size/mode/uid/gid use '!='.
func Equivalent(src, ref Tuple, ignore IgnoreFlag) bool {
	if src.Mtime.After(ref.Mtime) {
		return false
	}
	if src.Size != ref.Size {
		return false
	}
	if src.Ctime.After(ref.Ctime) {
		return false
	}
	if src.Mode != ref.Mode {
		return false
	}
	if ignore&IgnoreUID == 0 && src.Uid != ref.Uid {
		return false
	}
	if ignore&IgnoreGID == 0 && src.Gid != ref.Gid {
		return false
	}
	return true
}

// NeedsAttributeRefresh reports whether a linked file's attributes
// must be pushed onto the shared inode even though content
// (mtime/size) was equivalent - i.e. checks 3-6 of the spec's rule.
func NeedsAttributeRefresh(src, ref Tuple, ignore IgnoreFlag) bool {
	if src.Ctime.After(ref.Ctime) {
		return true
	}
	if src.Mode != ref.Mode {
		return true
	}
	if ignore&IgnoreUID == 0 && src.Uid != ref.Uid {
		return true
	}
	if ignore&IgnoreGID == 0 && src.Gid != ref.Gid {
		return true
	}
	return false
}

// NeedsCopy reports whether checks 1-2 of the spec's rule fire - the
// content-change signal that forces a fresh copy rather than a link.
func NeedsCopy(src, ref Tuple) bool {
	return src.Mtime.After(ref.Mtime) || src.Size != ref.Size
}
