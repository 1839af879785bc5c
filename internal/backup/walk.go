// walk.go - the directory walker (§4.6): pre-order recursion that
// mirrors srcdir's structure into tgtdir, dispatching each child to
// the file handler or to itself.
//
// Grounded on github.com/opencoff/go-fio/walk's directory-enumeration
// idiom (walk/walk.go reads the full child list before recursing);
// unlike walk.go this never fans children out across goroutines -
// the walk here is the one place in the repo required to stay
// strictly sequential.
package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/waysnap/waysnap/internal/event"
	"github.com/waysnap/waysnap/internal/fio"
	"github.com/waysnap/waysnap/internal/ignore"
)

// walkDir implements §4.6 for one directory level.
func (c *Context) walkDir(srcdir, refdir, tgtdir string, inherited ignore.Set) error {
	ignored, added, found, err := ignore.Load(srcdir, inherited)
	if err != nil {
		return fmt.Errorf("ignore load %s: %w", srcdir, err)
	}
	if found {
		c.emit(event.FoundIgnoreFile, event.Payload{"name": srcdir})
		for _, p := range added {
			c.emit(event.AddedIgnoredDirectory, event.Payload{"name": p})
		}
	}

	if ignored.Contains(srcdir) || c.excluded(srcdir) {
		c.DirectoriesSkipped++
		c.emit(event.SkippedDirectory, event.Payload{"name": srcdir})
		return nil
	}

	c.LastDirectoryEntered = srcdir
	c.emit(event.EnteredDirectory, event.Payload{"name": srcdir})

	srcInfo, err := fio.Lstat(srcdir)
	if err != nil {
		return fmt.Errorf("lstat %s: %w", srcdir, err)
	}

	if !c.Dryrun {
		if err := os.Mkdir(tgtdir, 0700); err != nil {
			return fmt.Errorf("mkdir %s: %w", tgtdir, err)
		}
	}

	names, err := readdirnames(srcdir)
	if err != nil {
		return fmt.Errorf("readdir %s: %w", srcdir, err)
	}

	for _, n := range names {
		srcpath := filepath.Join(srcdir, n)
		refpath := filepath.Join(refdir, n)
		tgtpath := filepath.Join(tgtdir, n)

		childInfo, err := fio.Lstat(srcpath)
		if err != nil {
			return fmt.Errorf("lstat %s: %w", srcpath, err)
		}

		switch {
		case childInfo.IsSymlink(), childInfo.IsRegular():
			if err := c.handleFile(srcpath, refpath, tgtpath, childInfo, ignored); err != nil {
				return err
			}
		case childInfo.IsDir():
			if err := c.walkDir(srcpath, refpath, tgtpath, ignored); err != nil {
				return err
			}
		default:
			// device, FIFO, socket, or anything else: silently skipped.
		}
	}

	if err := c.copyAttributes(tgtdir, srcInfo); err != nil {
		return err
	}

	c.DirectoriesProcessed++
	c.emit(event.ExitedDirectory, event.Payload{"name": srcdir})
	return nil
}

// readdirnames materializes the full child-name list before any
// child is processed, per the walker's resource contract.
func readdirnames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}
