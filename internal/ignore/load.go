package ignore

import (
	"bufio"
	"os"
	"path/filepath"
)

// FileName is the per-directory opt-in ignore file.
const FileName = ".waybackup.ignore"

// Load reads dir/.waybackup.ignore, if present, and returns the Set
// that results from unioning inherited with the entries found there.
// added holds the absolute paths newly contributed by this directory
// (for event emission by the caller); found reports whether an
// ignore file existed at all, irrespective of whether it was empty.
//
// A line that is already absolute is kept as-is; anything else is
// resolved relative to dir. Empty ignore files - and a missing file -
// both return the inherited set unchanged, per the ignore set's
// copy-on-extend contract.
func Load(dir string, inherited Set) (out Set, added []string, found bool, err error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return inherited, nil, false, nil
		}
		return inherited, nil, false, err
	}
	defer f.Close()

	found = true

	var entries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}
		entries = append(entries, line)
	}
	if err := sc.Err(); err != nil {
		return inherited, nil, found, err
	}

	if len(entries) == 0 {
		return inherited, nil, found, nil
	}

	return inherited.Extend(entries), entries, found, nil
}
