// Package report writes machine-readable records of a batch run.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/dshills/sqlbatch/internal/config"
	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/result"
)

// Run is everything a report records about one invocation.
type Run struct {
	File    string
	Summary result.Summary
	Results []result.ExecutionResult
}

// Writer persists a Run.
type Writer interface {
	Write(ctx context.Context, run Run) error
	Close() error
}

// Entry is the flattened form of one ExecutionResult.
type Entry struct {
	Index       int           `json:"index"`
	Fingerprint string        `json:"fingerprint"`
	Statement   string        `json:"statement"`
	Status      result.Status `json:"status"`
	Succeeded   bool          `json:"succeeded"`
	Code        string        `json:"code,omitempty"`
	ExitCode    int           `json:"exit_code"`
	ElapsedMS   int64         `json:"elapsed_ms"`
	Output      string        `json:"output,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Entries flattens results ordered by statement index.
func Entries(results []result.ExecutionResult) []Entry {
	entries := make([]Entry, len(results))
	for i, r := range results {
		entries[i] = Entry{
			Index:       r.Statement.Index,
			Fingerprint: r.Statement.Fingerprint(),
			Statement:   r.Statement.Text,
			Status:      r.Status,
			Succeeded:   r.Succeeded(),
			Code:        r.Status.Code(),
			ExitCode:    r.ExitCode,
			ElapsedMS:   r.Elapsed.Milliseconds(),
			Output:      r.Output,
			Error:       r.Error,
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries
}

// Multi fans a Run out to several writers. Every writer is attempted; the
// first error is returned.
type Multi []Writer

func (m Multi) Write(ctx context.Context, run Run) error {
	var first error
	for _, w := range m {
		if err := w.Write(ctx, run); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = errors.ReportErrorf(err, "closing report")
		}
	}
	return first
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Open builds the writers selected by cfg. It returns nil when none are
// configured.
func Open(cfg config.ReportConfig) (Writer, error) {
	var m Multi
	if cfg.JSONPath != "" {
		m = append(m, NewJSON(cfg.JSONPath))
	}
	if cfg.SQLitePath != "" {
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		m = append(m, db)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
