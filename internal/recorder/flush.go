// flush.go - a bounded background batcher for backup_copied_file
// inserts.
//
// Grounded on github.com/opencoff/go-fio's WorkPool (workpool.go):
// the same submit-channel / harvest-goroutine / Wait-drains-errors
// shape, specialized down from an N-worker generic pool to a single
// background batcher, since here the work items (rows destined for
// one table, one transaction) benefit from being coalesced rather
// than fanned out to parallel workers that would just contend on the
// same database handle.
package recorder

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type copiedFileRow struct {
	backupID int64
	srcpath  string
	filesize int64
}

// flusher buffers COPIED_FILE rows and writes them to the database in
// batches, so a slow database does not serialize behind every single
// file event on the walker thread.
type flusher struct {
	db    *sql.DB
	rows  chan copiedFileRow
	done  chan struct{}
	batch int

	// stats is a concurrency-safe counter snapshot a caller may
	// inspect mid-run (e.g. from a status endpoint) without taking
	// a lock shared with the batcher goroutine.
	stats *xsync.MapOf[string, int64]

	mu   sync.Mutex
	errs []error
}

func newFlusher(db *sql.DB, batchSize int) *flusher {
	if batchSize <= 0 {
		batchSize = 50
	}
	f := &flusher{
		db:    db,
		rows:  make(chan copiedFileRow, batchSize*4),
		done:  make(chan struct{}),
		batch: batchSize,
		stats: xsync.NewMapOf[string, int64](),
	}
	go f.run()
	return f
}

func (f *flusher) run() {
	defer close(f.done)

	buf := make([]copiedFileRow, 0, f.batch)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		if err := f.insertBatch(buf); err != nil {
			f.addErr(err)
			f.bump("flush_errors", 1)
		} else {
			f.bump("flushed_rows", int64(len(buf)))
		}
		buf = buf[:0]
	}

	for row := range f.rows {
		buf = append(buf, row)
		if len(buf) >= f.batch {
			flush()
		}
	}
	flush()
}

func (f *flusher) bump(key string, delta int64) {
	cur, _ := f.stats.Load(key)
	f.stats.Store(key, cur+delta)
}

func (f *flusher) addErr(err error) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

// submit queues one row. Safe to call from the walker thread; it
// never blocks longer than it takes the channel buffer to drain.
func (f *flusher) submit(row copiedFileRow) {
	f.rows <- row
	f.bump("queued_rows", 1)
}

// close stops accepting new rows, flushes whatever remains, and
// returns the joined set of errors encountered while flushing.
func (f *flusher) close() error {
	close(f.rows)
	<-f.done

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) == 0 {
		return nil
	}
	return errors.Join(f.errs...)
}

func (f *flusher) insertBatch(rows []copiedFileRow) error {
	tx, err := f.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO backup_copied_file(backup_id, srcpath, filesize) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.backupID, r.srcpath, r.filesize); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
