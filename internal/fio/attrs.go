// attrs.go -- replicate (uid, gid, mode, atime, mtime[, xattr]) from
// a stat'd source onto a target path.
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

//go:build unix

package fio

import (
	"fmt"
	"os"
)

// CopyAttributes replicates uid, gid, mode bits, and access/mod
// times from fi onto dest, in that order - chown before chmod
// because chown on some systems clears the setuid/setgid bits.
// When withXattr is set, the source's extended attributes (already
// populated in fi.Xattr via StatmXattr/LstatmXattr) are replicated
// too.
func CopyAttributes(dest string, fi *Info, withXattr bool) error {
	if err := os.Chown(dest, int(fi.Uid), int(fi.Gid)); err != nil {
		return fmt.Errorf("chown: %w", err)
	}
	if err := os.Chmod(dest, fi.Mode()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Chtimes(dest, fi.Atim, fi.Mtim); err != nil {
		return fmt.Errorf("utimes: %w", err)
	}
	if withXattr {
		if err := ReplaceXattr(dest, fi.Xattr); err != nil {
			return fmt.Errorf("xattr: %w", err)
		}
	}
	return nil
}

// CloneSymlink recreates the symlink at src (whose target is
// 'target') at dest, pointing at the identical target string. The
// OS does not let us set arbitrary mode/uid/gid/times on a symlink
// beyond its creation time, so no CopyAttributes call follows.
func CloneSymlink(dest, target string) error {
	if err := os.Symlink(target, dest); err != nil {
		return fmt.Errorf("symlink: %w", err)
	}
	return nil
}
