package report

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/dshills/sqlbatch/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	file       TEXT NOT NULL,
	started_at TEXT NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	workers    INTEGER NOT NULL,
	total      INTEGER NOT NULL,
	ok         INTEGER NOT NULL,
	skipped    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(run_id),
	stmt_index  INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	statement   TEXT NOT NULL,
	status      TEXT NOT NULL,
	exit_code   INTEGER NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	output      TEXT,
	error       TEXT,
	PRIMARY KEY (run_id, stmt_index)
);`

// SQLite appends runs to a sqlite journal. Runs from earlier invocations
// stay in the file.
type SQLite struct {
	db *sql.DB
}

// busyTimeout is applied by the driver to every pooled connection.
const busyTimeout = "_pragma=busy_timeout(5000)"

// OpenSQLite opens (creating if needed) the journal at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?"+busyTimeout)
	if err != nil {
		return nil, errors.ReportErrorf(err, "opening sqlite journal %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.ReportErrorf(err, "creating sqlite journal schema")
	}
	return &SQLite{db: db}, nil
}

// DB exposes the underlying handle for queries against the journal.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Write(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.ReportErrorf(err, "starting journal transaction")
	}
	defer tx.Rollback()

	sum := run.Summary
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, file, started_at, elapsed_ms, workers, total, ok, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, run.File, formatTime(sum.StartedAt), sum.Elapsed.Milliseconds(),
		sum.Workers, sum.Total, sum.OK, sum.Skipped)
	if err != nil {
		return errors.ReportErrorf(err, "recording run %s", sum.RunID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, stmt_index, fingerprint, statement, status, exit_code, elapsed_ms, output, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.ReportErrorf(err, "preparing result insert")
	}
	defer stmt.Close()

	for _, e := range Entries(run.Results) {
		if _, err := stmt.ExecContext(ctx, sum.RunID, e.Index, e.Fingerprint, e.Statement,
			string(e.Status), e.ExitCode, e.ElapsedMS, e.Output, e.Error); err != nil {
			return errors.ReportErrorf(err, "recording statement %d", e.Index)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.ReportErrorf(err, "committing journal")
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
