package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sqlbatch/internal/config"
	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/result"
	"github.com/dshills/sqlbatch/internal/statement"
	"github.com/dshills/sqlbatch/internal/testutil"
)

func sampleRun() Run {
	results := []result.ExecutionResult{
		{
			Statement: statement.Statement{Index: 2, Text: "SELECT FAIL"},
			Status:    result.StatusFailed,
			ExitCode:  1,
			Elapsed:   30 * time.Millisecond,
			Error:     "ORA-00942",
		},
		{
			Statement: statement.Statement{Index: 0, Text: "SELECT 1"},
			Status:    result.StatusSucceeded,
			Elapsed:   12 * time.Millisecond,
			Output:    "1",
		},
		result.Skipped(statement.Statement{Index: 1, Text: ""}),
	}
	summary := result.Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		Elapsed:   45 * time.Millisecond,
		Workers:   2,
	}
	summary.Count(results)
	return Run{File: "batch.sql", Summary: summary, Results: results}
}

func TestEntriesSortedByIndex(t *testing.T) {
	entries := Entries(sampleRun().Results)
	require.Len(t, entries, 3)

	assert.Equal(t, []int{0, 1, 2}, []int{entries[0].Index, entries[1].Index, entries[2].Index})
	assert.True(t, entries[0].Succeeded)
	assert.Equal(t, errors.StatementExecutionFailure, entries[2].Code)
	assert.Equal(t, int64(30), entries[2].ElapsedMS)
	assert.Equal(t, statement.Statement{Text: "SELECT 1"}.Fingerprint(), entries[0].Fingerprint)
}

func TestJSONWriter(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	path := filepath.Join(dir, "report.json")
	run := sampleRun()

	w := NewJSON(path)
	require.NoError(t, w.Write(context.Background(), run))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, run.Summary.RunID, doc.RunID)
	assert.Equal(t, "batch.sql", doc.File)
	assert.Equal(t, "2026-10-14T09:30:00Z", doc.StartedAt)
	assert.Equal(t, 2, doc.Total)
	assert.Equal(t, 1, doc.OK)
	assert.Equal(t, 1, doc.Failed)
	assert.Equal(t, 1, doc.Skipped)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, result.StatusSkipped, doc.Results[1].Status)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".sqlbatch-report-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestJSONWriterBadDirectory(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	err := NewJSON(filepath.Join(dir, "missing", "report.json")).Write(context.Background(), sampleRun())
	require.Error(t, err)
	assert.True(t, errors.IsError(err, errors.ReportFailure))
}

func TestSQLiteJournalAccumulatesRuns(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	path := filepath.Join(dir, "journal.db")

	first, second := sampleRun(), sampleRun()

	j, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.Write(context.Background(), first))
	require.NoError(t, j.Close())

	j, err = OpenSQLite(path)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Write(context.Background(), second))

	var runs int
	require.NoError(t, j.DB().QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&runs))
	assert.Equal(t, 2, runs)

	var total, ok, skipped int
	require.NoError(t, j.DB().QueryRow(
		`SELECT total, ok, skipped FROM runs WHERE run_id = ?`, second.Summary.RunID).Scan(&total, &ok, &skipped))
	assert.Equal(t, []int{2, 1, 1}, []int{total, ok, skipped})

	rows, err := j.DB().Query(
		`SELECT stmt_index, status, exit_code FROM results WHERE run_id = ? ORDER BY stmt_index`, first.Summary.RunID)
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var idx, code int
		var status string
		require.NoError(t, rows.Scan(&idx, &status, &code))
		got = append(got, fmt.Sprintf("%d:%s:%d", idx, status, code))
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"0:succeeded:0", "1:skipped:-1", "2:failed:1"}, got)
}

func TestSQLiteBusyTimeoutOnEveryConnection(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	path := filepath.Join(dir, "journal.db")

	j, err := OpenSQLite(path)
	require.NoError(t, err)
	defer j.Close()
	assert.FileExists(t, path)

	ctx := context.Background()
	first, err := j.DB().Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := j.DB().Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var ms int
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&ms))
		assert.Equal(t, 5000, ms)
	}
}

func TestSQLiteDuplicateRunFails(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	j, err := OpenSQLite(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	run := sampleRun()
	require.NoError(t, j.Write(context.Background(), run))
	err = j.Write(context.Background(), run)
	require.Error(t, err)
	assert.True(t, errors.IsError(err, errors.ReportFailure))
}

type failingWriter struct {
	writes int
	err    error
}

func (f *failingWriter) Write(context.Context, Run) error {
	f.writes++
	return f.err
}

func (f *failingWriter) Close() error { return nil }

func TestMultiAttemptsEveryWriter(t *testing.T) {
	a := &failingWriter{err: fmt.Errorf("first")}
	b := &failingWriter{}
	m := Multi{a, b}

	err := m.Write(context.Background(), sampleRun())
	assert.EqualError(t, err, "first")
	assert.Equal(t, 1, a.writes)
	assert.Equal(t, 1, b.writes)
	assert.NoError(t, m.Close())
}

func TestOpen(t *testing.T) {
	w, err := Open(config.ReportConfig{})
	require.NoError(t, err)
	assert.Nil(t, w)

	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	w, err = Open(config.ReportConfig{
		JSONPath:   filepath.Join(dir, "report.json"),
		SQLitePath: filepath.Join(dir, "journal.db"),
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Len(t, w.(Multi), 2)

	require.NoError(t, w.Write(context.Background(), sampleRun()))
	require.NoError(t, w.Close())
	assert.FileExists(t, filepath.Join(dir, "report.json"))
	assert.FileExists(t, filepath.Join(dir, "journal.db"))
}
