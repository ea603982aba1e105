package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dshills/sqlbatch/internal/errors"
)

// Document is the JSON report layout.
type Document struct {
	RunID     string  `json:"run_id"`
	File      string  `json:"file"`
	StartedAt string  `json:"started_at"`
	ElapsedMS int64   `json:"elapsed_ms"`
	Workers   int     `json:"workers"`
	Total     int     `json:"total"`
	OK        int     `json:"ok"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	Results   []Entry `json:"results"`
}

// JSON writes one report document per run, replacing the file.
type JSON struct {
	path string
}

// NewJSON creates a JSON writer for path.
func NewJSON(path string) *JSON {
	return &JSON{path: path}
}

func (j *JSON) Write(_ context.Context, run Run) error {
	s := run.Summary
	doc := Document{
		RunID:     s.RunID,
		File:      run.File,
		StartedAt: formatTime(s.StartedAt),
		ElapsedMS: s.Elapsed.Milliseconds(),
		Workers:   s.Workers,
		Total:     s.Total,
		OK:        s.OK,
		Failed:    s.Failed(),
		Skipped:   s.Skipped,
		Results:   Entries(run.Results),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.ReportErrorf(err, "encoding json report")
	}

	// Written to a temp file in the same directory, then renamed over path.
	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".sqlbatch-report-*")
	if err != nil {
		return errors.ReportErrorf(err, "creating json report %s", j.path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.ReportErrorf(err, "writing json report %s", j.path)
	}
	if err := tmp.Close(); err != nil {
		return errors.ReportErrorf(err, "writing json report %s", j.path)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return errors.ReportErrorf(err, "writing json report %s", j.path)
	}
	return nil
}

func (j *JSON) Close() error { return nil }
