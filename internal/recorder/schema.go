// schema.go - minimal DDL for the two tables the recorder writes to,
// mirroring the table shapes original_source/waybackup-db.py assumed
// were already migrated in (it used SQLAlchemy's autoload_with
// against a pre-existing schema; here we create it ourselves since
// this package has no external migration tool to lean on).
package recorder

const schemaDDL = `
CREATE TABLE IF NOT EXISTS backup_history (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	started                DATETIME NOT NULL,
	finished               DATETIME,
	dryrun                 TEXT NOT NULL,
	srcdir                 TEXT NOT NULL,
	refdir                 TEXT NOT NULL,
	tgtdir                 TEXT NOT NULL,
	status                 INTEGER,
	directories_processed  INTEGER,
	directories_skipped    INTEGER,
	files_skipped          INTEGER,
	files_copied           INTEGER,
	bytes_copied           INTEGER,
	file_attributes_copied INTEGER,
	symlinks_copied        INTEGER,
	links_created          INTEGER
);

CREATE TABLE IF NOT EXISTS backup_copied_file (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	backup_id INTEGER NOT NULL,
	srcpath   TEXT NOT NULL,
	filesize  INTEGER NOT NULL
);
`
