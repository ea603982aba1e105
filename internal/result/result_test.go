package result

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/statement"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		status Status
		code   string
	}{
		{StatusSucceeded, ""},
		{StatusSkipped, ""},
		{StatusFailed, errors.StatementExecutionFailure},
		{StatusInvocationFault, errors.InvocationFault},
		{StatusTimedOut, errors.InvocationTimeout},
		{StatusCollectionFault, errors.CollectionFault},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.status.Code())
		})
	}
}

func TestFault(t *testing.T) {
	stmt := statement.Statement{Index: 2, Text: "SELECT 1"}
	started := time.Now().Add(-time.Second)

	r := Fault(stmt, StatusInvocationFault, started, fmt.Errorf("exec: \"sqlplus\": executable file not found in $PATH"))

	assert.False(t, r.Succeeded())
	assert.Equal(t, -1, r.ExitCode)
	assert.Equal(t, stmt, r.Statement)
	assert.Contains(t, r.Error, "executable file not found")
	assert.GreaterOrEqual(t, r.Elapsed, time.Second)
}

func TestSummaryCount(t *testing.T) {
	results := []ExecutionResult{
		{Status: StatusSucceeded},
		{Status: StatusFailed},
		{Status: StatusSucceeded},
		{Status: StatusTimedOut},
		Skipped(statement.Statement{Index: 4}),
		{Status: StatusCollectionFault},
	}

	var s Summary
	s.Count(results)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.OK)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 3, s.Failed())
	assert.False(t, s.AllOK())

	assert.True(t, Summary{}.AllOK())
}
