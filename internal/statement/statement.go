// Package statement loads SQL statements from a delimited batch file.
//
// Splitting is deliberately naive: newlines are removed and the remaining
// text is cut on every delimiter. A delimiter inside a string literal or a
// comment splits the statement.
package statement

import (
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"

	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/log"
)

// Delimiter separates statements in a batch file.
const Delimiter = ";"

// Statement is one fragment of a batch file.
type Statement struct {
	// Index is the 0-based position of the statement in the file.
	Index int
	Text  string
}

// Blank reports whether the statement has no non-whitespace content.
func (s Statement) Blank() bool {
	return strings.TrimSpace(s.Text) == ""
}

// Fingerprint returns a short stable identifier for the statement text.
func (s Statement) Fingerprint() string {
	return strconv.FormatUint(xxhash.Sum64String(s.Text), 16)
}

// Read loads path and splits it into statements. The total count is logged
// at info level on logger.
func Read(path string, logger log.Logger) ([]Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ReadErrorf(err, path)
	}

	stmts := Split(string(data))
	logger.Info("Found total statement: "+strconv.Itoa(len(stmts)), log.String("file", path))
	return stmts, nil
}

// Split removes line breaks from content and cuts it on Delimiter. The
// result always has exactly strings.Count(stripped, Delimiter)+1 entries,
// empty fragments included.
func Split(content string) []Statement {
	stripped := strings.NewReplacer("\r", "", "\n", "").Replace(content)
	parts := strings.Split(stripped, Delimiter)

	stmts := make([]Statement, len(parts))
	for i, p := range parts {
		stmts[i] = Statement{Index: i, Text: p}
	}
	return stmts
}

// Filter partitions stmts into those to execute and those skipped. With
// skipBlank unset every statement is executed.
func Filter(stmts []Statement, skipBlank bool) (run, skipped []Statement) {
	if !skipBlank {
		return stmts, nil
	}
	run = make([]Statement, 0, len(stmts))
	for _, s := range stmts {
		if s.Blank() {
			skipped = append(skipped, s)
			continue
		}
		run = append(run, s)
	}
	return run, skipped
}
