// Package client runs statements through an external database client.
//
// Each statement gets a fresh process started from an argument vector;
// no shell is involved and the statement only ever travels on stdin.
package client

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/sqlbatch/internal/config"
	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/log"
	"github.com/dshills/sqlbatch/internal/result"
	"github.com/dshills/sqlbatch/internal/statement"
)

const redacted = "****"

// waitDelay bounds how long Execute waits for pipes after the client is
// killed on timeout.
const waitDelay = 5 * time.Second

// Client is an immutable invocation template for one database client.
type Client struct {
	command   string
	args      []string
	shownArgs []string
	env       []string

	preamble   string
	terminator string
	postamble  string

	timeout   time.Duration
	maxOutput int
	logger    log.Logger
}

// New builds a Client from cfg. Placeholders in the args are expanded here,
// once; {database} falls back to the DSN when no database is configured, and
// the DSN to the flavor's default identifier.
func New(cfg config.ClientConfig, logger log.Logger) (*Client, error) {
	fl, ok := flavors[cfg.Flavor]
	if !ok {
		return nil, errors.InvalidConfigf("invalid client flavor: %s", cfg.Flavor)
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, errors.InvalidConfigf("invalid timeout %q", cfg.Timeout).WithDetail(err.Error())
	}

	c := &Client{
		command:    firstNonEmpty(cfg.Command, fl.command),
		preamble:   firstNonEmpty(cfg.Preamble, fl.preamble),
		terminator: firstNonEmpty(cfg.Terminator, fl.terminator),
		postamble:  firstNonEmpty(cfg.Postamble, fl.postamble),
		timeout:    timeout,
		maxOutput:  cfg.MaxOutputBytes,
		logger:     logger,
	}
	if c.command == "" {
		return nil, errors.InvalidConfigf("client command is required")
	}

	args := cfg.Args
	if len(args) == 0 {
		args = fl.args
	}

	cfg.DSN = firstNonEmpty(cfg.DSN, fl.dsn)

	var conninfo string
	if cfg.Flavor == config.FlavorPsql {
		if cfg.DSN == "" {
			return nil, errors.InvalidConfigf("dsn is required for the psql flavor")
		}
		var urlPassword string
		if conninfo, urlPassword, err = Conninfo(cfg.DSN, cfg.User); err != nil {
			return nil, err
		}
		if pw := firstNonEmpty(cfg.Password, urlPassword); pw != "" {
			c.env = append(os.Environ(), "PGPASSWORD="+pw)
		}
	}

	database := firstNonEmpty(cfg.Database, cfg.DSN)
	c.args = expand(args, cfg, database, conninfo, cfg.Password)
	c.shownArgs = expand(args, cfg, database, conninfo, redacted)

	return c, nil
}

func expand(args []string, cfg config.ClientConfig, database, conninfo, password string) []string {
	r := strings.NewReplacer(
		"{user}", cfg.User,
		"{password}", password,
		"{database}", database,
		"{dsn}", cfg.DSN,
		"{conninfo}", conninfo,
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// String returns the command line with the password redacted.
func (c *Client) String() string {
	return strings.Join(append([]string{c.command}, c.shownArgs...), " ")
}

// Input returns the bytes written to the client's stdin for stmt.
func (c *Client) Input(stmt statement.Statement) string {
	var b strings.Builder
	if c.preamble != "" {
		b.WriteString(c.preamble)
		b.WriteByte('\n')
	}
	b.WriteString(stmt.Text)
	b.WriteString(c.terminator)
	b.WriteByte('\n')
	if c.postamble != "" {
		b.WriteString(c.postamble)
		b.WriteByte('\n')
	}
	return b.String()
}

// Execute runs stmt in a new client process and waits for it. It always
// returns a well-formed result; every failure is expressed in its Status.
func (c *Client) Execute(ctx context.Context, stmt statement.Statement) result.ExecutionResult {
	started := time.Now()
	logger := c.logger.WithContext(ctx).With(log.Int("index", stmt.Index), log.String("fingerprint", stmt.Fingerprint()))

	// runCtx carries the per-statement limit; ctx stays the caller's so a
	// deadline set upstream is not mistaken for our own timeout.
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.command, c.args...)
	cmd.Env = c.env
	cmd.Stdin = strings.NewReader(c.Input(stmt))
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(started)

	res := result.ExecutionResult{
		Statement: stmt,
		StartedAt: started,
		Elapsed:   elapsed,
		ExitCode:  -1,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Status = result.StatusSucceeded
		res.ExitCode = 0
		res.Output = c.truncate(stdout.String())
		logger.Info(flatten(fmt.Sprintf("Success [%s]: Executed query: %s | Output: %s", elapsed, stmt.Text, res.Output)))

	case ctx.Err() == nil && stderrors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Status = result.StatusTimedOut
		res.Error = errors.TimeoutError(c.timeout).Error()
		logger.Error(flatten(fmt.Sprintf("Exception executing query: %s - %s", stmt.Text, res.Error)))

	case ctx.Err() != nil:
		res.Status = result.StatusInvocationFault
		res.Error = errors.InvocationFaultf(ctx.Err(), "client interrupted").Error()
		logger.Error(flatten(fmt.Sprintf("Exception executing query: %s - %s", stmt.Text, res.Error)))

	case stderrors.As(err, &exitErr):
		res.Status = result.StatusFailed
		res.ExitCode = exitErr.ExitCode()
		msg := stderr.String()
		if strings.TrimSpace(msg) == "" {
			// sqlplus reports SQL errors on stdout
			msg = stdout.String()
		}
		res.Error = c.truncate(msg)
		logger.Error(flatten(fmt.Sprintf("Error executing query: %s | Error: %s", stmt.Text, res.Error)),
			log.Int("exit_code", res.ExitCode))

	default:
		res.Status = result.StatusInvocationFault
		res.Error = errors.InvocationFaultf(err, "cannot run %s", c.command).Error()
		logger.Error(flatten(fmt.Sprintf("Exception executing query: %s - %s", stmt.Text, res.Error)))
	}

	return res
}

// truncate cuts s to at most maxOutput bytes without splitting a rune.
func (c *Client) truncate(s string) string {
	if c.maxOutput <= 0 || len(s) <= c.maxOutput {
		return s
	}
	n := c.maxOutput
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "... (truncated)"
}

// flatten removes line breaks so a message stays on one log line.
func flatten(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
