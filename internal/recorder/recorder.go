// recorder.go - an event.Sink that records each backup run durably
// in a SQL database, the Go analogue of
// original_source/waybackup-db.py's WayBackupDatabaseRecorder.
package recorder

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"

	"github.com/waysnap/waysnap/internal/event"
)

// SQLRecorder implements event.Sink, writing one backup_history row
// per run and one backup_copied_file row per COPIED_FILE event.
type SQLRecorder struct {
	db       *sql.DB
	flusher  *flusher
	backupID atomic.Int64
}

// Open opens driver/dsn, ensures the schema exists, and returns a
// ready-to-use SQLRecorder. batchSize controls how many
// backup_copied_file rows are coalesced into one transaction; 0
// picks a sane default.
func Open(driver, dsn string, batchSize int) (*SQLRecorder, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: ping %s: %w", driver, err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: migrate: %w", err)
	}

	return &SQLRecorder{
		db:      db,
		flusher: newFlusher(db, batchSize),
	}, nil
}

// Close drains the flush queue and closes the underlying database
// handle. Call after the backup run has returned.
func (r *SQLRecorder) Close() error {
	ferr := r.flusher.close()
	if err := r.db.Close(); err != nil {
		return err
	}
	return ferr
}

// Emit implements event.Sink.
func (r *SQLRecorder) Emit(tag event.Tag, payload event.Payload) {
	switch tag {
	case event.StartedBackup:
		r.started(payload)
	case event.CopiedFile:
		r.copiedFile(payload)
	case event.FinishedBackup:
		r.finished(payload)
	}
}

func (r *SQLRecorder) started(p event.Payload) {
	dryrun := "NO"
	if b, _ := p["dryrun"].(bool); b {
		dryrun = "YES"
	}

	res, err := r.db.Exec(
		`INSERT INTO backup_history(started, dryrun, srcdir, refdir, tgtdir) VALUES (?, ?, ?, ?, ?)`,
		p["start_time"], dryrun, p["srcdir"], p["refdir"], p["tgtdir"],
	)
	if err != nil {
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		return
	}
	r.backupID.Store(id)
}

func (r *SQLRecorder) copiedFile(p event.Payload) {
	name, _ := p["name"].(string)
	size, _ := p["size"].(int64)
	r.flusher.submit(copiedFileRow{
		backupID: r.backupID.Load(),
		srcpath:  name,
		filesize: size,
	})
}

func (r *SQLRecorder) finished(p event.Payload) {
	_, _ = r.db.Exec(
		`UPDATE backup_history SET
			finished=?, status=?,
			directories_processed=?, directories_skipped=?,
			files_skipped=?, files_copied=?, bytes_copied=?,
			file_attributes_copied=?, symlinks_copied=?, links_created=?
		 WHERE id=?`,
		p["finish_time"], p["status"],
		p["directories_processed"], p["directories_skipped"],
		p["files_skipped"], p["files_copied"], p["bytes_copied"],
		p["file_attributes_copied"], p["symlinks_copied"], p["links_created"],
		r.backupID.Load(),
	)
}

var _ event.Sink = &SQLRecorder{}
