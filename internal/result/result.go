// Package result holds the per-statement outcome and run summary types
// shared by the client, the dispatcher and the report writers.
package result

import (
	"time"

	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/statement"
)

// Status is the terminal state of a statement. A statement reaches exactly
// one Status and never leaves it.
type Status string

const (
	StatusSucceeded       Status = "succeeded"
	StatusFailed          Status = "failed"
	StatusInvocationFault Status = "invocation_fault"
	StatusTimedOut        Status = "timed_out"
	StatusCollectionFault Status = "collection_fault"
	StatusSkipped         Status = "skipped"
)

// Code returns the error code classifying a non-successful status, or ""
// for succeeded and skipped.
func (s Status) Code() string {
	switch s {
	case StatusFailed:
		return errors.StatementExecutionFailure
	case StatusInvocationFault:
		return errors.InvocationFault
	case StatusTimedOut:
		return errors.InvocationTimeout
	case StatusCollectionFault:
		return errors.CollectionFault
	default:
		return ""
	}
}

// ExecutionResult is the outcome of running one statement.
type ExecutionResult struct {
	Statement statement.Statement
	Status    Status
	StartedAt time.Time
	Elapsed   time.Duration
	// ExitCode is the client exit status, or -1 when the client never exited
	// normally.
	ExitCode int
	// Output holds the captured stdout on success. Error holds the captured
	// stderr or the fault message otherwise.
	Output string
	Error  string
}

// Succeeded reports whether the client ran the statement and exited 0.
func (r ExecutionResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Fault builds a result for a statement that never produced a client exit
// status.
func Fault(stmt statement.Statement, status Status, started time.Time, err error) ExecutionResult {
	return ExecutionResult{
		Statement: stmt,
		Status:    status,
		StartedAt: started,
		Elapsed:   time.Since(started),
		ExitCode:  -1,
		Error:     err.Error(),
	}
}

// Skipped builds the result for a statement that was filtered out before
// dispatch.
func Skipped(stmt statement.Statement) ExecutionResult {
	return ExecutionResult{Statement: stmt, Status: StatusSkipped, ExitCode: -1}
}

// Summary aggregates a run.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Workers   int
	// Total counts dispatched statements. Skipped statements are excluded.
	Total   int
	OK      int
	Skipped int
}

// Failed returns the number of dispatched statements that did not succeed.
func (s Summary) Failed() int {
	return s.Total - s.OK
}

// AllOK returns true if every dispatched statement succeeded.
func (s Summary) AllOK() bool {
	return s.OK == s.Total
}

// Count tallies results into s, ignoring skipped entries.
func (s *Summary) Count(results []ExecutionResult) {
	for _, r := range results {
		switch {
		case r.Status == StatusSkipped:
			s.Skipped++
		case r.Succeeded():
			s.Total++
			s.OK++
		default:
			s.Total++
		}
	}
}
