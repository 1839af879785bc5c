// info.go - fs.FileInfo with the extra stat(2) fields the backup
// reconciler needs to decide link-vs-copy (device, inode, nlink,
// ctime) plus extended attributes.
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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Info represents a file/dir metadata in a normalized form. It
// satisfies the fs.FileInfo interface and additionally carries the
// device/inode/ctime/xattr that fs.FileInfo leaves out.
type Info struct {
	Ino  uint64
	Siz  int64
	Dev  uint64
	Rdev uint64

	Mod   fs.FileMode
	Uid   uint32
	Gid   uint32
	Nlink uint32

	Atim time.Time
	Mtim time.Time
	Ctim time.Time

	path  string
	Xattr Xattr
}

var _ fs.FileInfo = &Info{}

// Stat is like os.Stat() but also returns device/inode/ctime. Xattr is
// left empty (see StatmXattr).
func Stat(nm string) (*Info, error) {
	var ii Info
	if err := Statm(nm, &ii); err != nil {
		return nil, err
	}
	return &ii, nil
}

// Statm is like Stat above - except it uses caller
// supplied memory for the stat(2) info. Xattr is left empty; call
// StatmXattr when the caller has opted into xattr preservation.
func Statm(nm string, fi *Info) error {
	var st syscall.Stat_t

	if err := syscall.Stat(nm, &st); err != nil {
		return err
	}

	makeInfo(fi, nm, &st, nil)
	return nil
}

// StatmXattr is like Statm but also populates Info.Xattr. Reserved
// for callers that opted into xattr preservation - it costs an
// extra listxattr(2)+getxattr(2) per call per attribute.
func StatmXattr(nm string, fi *Info) error {
	if err := Statm(nm, fi); err != nil {
		return err
	}
	x, err := GetXattr(nm)
	if err != nil {
		return err
	}
	fi.Xattr = x
	return nil
}

// Lstat is like os.Lstat() but also returns device/inode/ctime. Xattr
// is left empty (see LstatmXattr).
func Lstat(nm string) (*Info, error) {
	var ii Info
	if err := Lstatm(nm, &ii); err != nil {
		return nil, err
	}
	return &ii, nil
}

// Lstatm is like Lstat except it uses the caller
// supplied memory. Xattr is left empty; call LstatmXattr when the
// caller has opted into xattr preservation.
func Lstatm(nm string, fi *Info) error {
	var st syscall.Stat_t
	if err := syscall.Lstat(nm, &st); err != nil {
		return err
	}

	makeInfo(fi, nm, &st, nil)
	return nil
}

// LstatmXattr is like Lstatm but also populates Info.Xattr.
func LstatmXattr(nm string, fi *Info) error {
	if err := Lstatm(nm, fi); err != nil {
		return err
	}
	x, err := LgetXattr(nm)
	if err != nil {
		return err
	}
	fi.Xattr = x
	return nil
}

// Fstat is like os.File.Stat() but also returns device/inode/ctime.
// Xattr is left empty.
func Fstat(fd *os.File) (*Info, error) {
	var ii Info
	if err := Fstatm(fd, &ii); err != nil {
		return nil, err
	}
	return &ii, nil
}

// Fstatm is like Fstat except it uses caller supplied memory
func Fstatm(fd *os.File, fi *Info) error {
	return Lstatm(fd.Name(), fi)
}

// String is a string representation of Info
func (ii *Info) String() string {
	return fmt.Sprintf("%s: %d %d; %s; %s", ii.Name(), ii.Siz, ii.Nlink, ii.ModTime().UTC(), ii.Mode().String())
}

// Path returns the path this Info was stat'd from.
func (ii *Info) Path() string {
	return ii.path
}

// SetPath sets the path to 'p'
func (ii *Info) SetPath(p string) {
	ii.path = p
}

// fs.FileInfo methods of Info

// Name satisfies fs.FileInfo and returns the basename of the fs entry.
func (ii *Info) Name() string {
	return filepath.Base(ii.path)
}

// Size returns the fs entry's size
func (ii *Info) Size() int64 {
	return ii.Siz
}

// Mode returns the file mode bits
func (ii *Info) Mode() fs.FileMode {
	return ii.Mod
}

// ModTime returns the file modification time
func (ii *Info) ModTime() time.Time {
	return ii.Mtim
}

// IsDir returns true if this Info represents a directory entry
func (ii *Info) IsDir() bool {
	return ii.Mode().IsDir()
}

// IsRegular returns true if this Info represents a regular file
func (ii *Info) IsRegular() bool {
	return ii.Mode().IsRegular()
}

// IsSymlink returns true if this Info represents a symbolic link
func (ii *Info) IsSymlink() bool {
	return ii.Mode()&fs.ModeSymlink != 0
}

// IsSameFS returns true if a and b represent file entries on the
// same file system device.
func (a *Info) IsSameFS(b *Info) bool {
	return a.Dev == b.Dev && a.Rdev == b.Rdev
}

// Sys returns the platform specific info - in our case it
// returns a pointer to the underlying Info instance.
func (ii *Info) Sys() any {
	return ii
}

func ts2time(a syscall.Timespec) time.Time {
	return time.Unix(int64(a.Sec), int64(a.Nsec))
}
