// Package dispatch runs a batch of statements concurrently and collects
// their results.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/sqlbatch/internal/config"
	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/log"
	"github.com/dshills/sqlbatch/internal/result"
	"github.com/dshills/sqlbatch/internal/statement"
)

// Executor runs a single statement. Implementations are expected to always
// return a result; the dispatcher still contains panics and malformed
// results should one slip through.
type Executor interface {
	Execute(ctx context.Context, stmt statement.Statement) result.ExecutionResult
}

// Options controls a run.
type Options struct {
	RunID string
	// MaxWorkers bounds concurrency; 0 means one worker per CPU.
	MaxWorkers int
	// Strategy is config.StrategyPool or config.StrategyGroup.
	Strategy string
	// SkipBlank keeps whitespace-only statements away from the executor.
	SkipBlank bool
}

// Dispatcher fans statements out to an Executor.
type Dispatcher struct {
	exec   Executor
	opts   Options
	logger log.Logger
}

// New creates a Dispatcher.
func New(exec Executor, opts Options, logger log.Logger) *Dispatcher {
	if opts.Strategy == "" {
		opts.Strategy = config.StrategyPool
	}
	return &Dispatcher{exec: exec, opts: opts, logger: logger}
}

// EffectiveWorkers returns the number of workers used for n statements.
func EffectiveWorkers(maxWorkers, n int) int {
	if n <= 0 {
		return 0
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return min(maxWorkers, n)
}

// RunAll executes every statement and returns the summary together with
// the results: skipped statements first, then executed ones in completion
// order. It returns only after every statement has a terminal result.
// Statements not started before ctx is done are recorded as invocation
// faults.
func (d *Dispatcher) RunAll(ctx context.Context, all []statement.Statement) (result.Summary, []result.ExecutionResult) {
	summary := result.Summary{RunID: d.opts.RunID, StartedAt: time.Now()}

	stmts, skipped := statement.Filter(all, d.opts.SkipBlank)
	results := make([]result.ExecutionResult, 0, len(all))
	for _, stmt := range skipped {
		d.logger.Info("Skipping empty statement", log.Int("index", stmt.Index))
		results = append(results, result.Skipped(stmt))
	}

	if len(stmts) == 0 {
		summary.Count(results)
		d.report(summary)
		return summary, results
	}

	workers := EffectiveWorkers(d.opts.MaxWorkers, len(stmts))
	d.logger.Debug("dispatching statements",
		log.Int("statements", len(stmts)),
		log.Int("workers", workers),
		log.String("strategy", d.opts.Strategy))

	out := make(chan result.ExecutionResult, len(stmts))
	switch d.opts.Strategy {
	case config.StrategyGroup:
		go d.runGroup(ctx, stmts, workers, out)
	default:
		go d.runPool(ctx, stmts, workers, out)
	}

	for r := range out {
		results = append(results, r)
	}

	summary.Workers = workers
	summary.Count(results)
	summary.Elapsed = time.Since(summary.StartedAt)
	d.report(summary)

	return summary, results
}

func (d *Dispatcher) runPool(ctx context.Context, stmts []statement.Statement, workers int, out chan<- result.ExecutionResult) {
	defer close(out)

	pool := NewWorkerPool(ctx, workers)
	d.logger.Debug("worker pool started", log.Int("workers", pool.Workers()))
	for _, stmt := range stmts {
		task := &statementTask{stmt: stmt, run: d.execute, out: out}
		if err := pool.Submit(task); err != nil {
			out <- d.notStarted(stmt, err)
		}
	}
	pool.Close()
}

func (d *Dispatcher) runGroup(ctx context.Context, stmts []statement.Statement, workers int, out chan<- result.ExecutionResult) {
	defer close(out)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			out <- d.notStarted(stmt, err)
			continue
		}
		g.Go(func() error {
			out <- d.execute(ctx, stmt)
			return nil
		})
	}
	_ = g.Wait()
}

// execute runs stmt through the executor, turning a panic or a result
// without a status into a collection fault.
func (d *Dispatcher) execute(ctx context.Context, stmt statement.Statement) (res result.ExecutionResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf(errors.CollectionFault, "task panicked: %v", r)
			d.logger.Error(fmt.Sprintf("Error in task: %v", r), log.Int("index", stmt.Index))
			res = result.Fault(stmt, result.StatusCollectionFault, started, err)
		}
	}()

	d.logger.Debug("statement running", log.Int("index", stmt.Index))
	res = d.exec.Execute(ctx, stmt)
	if res.Status == "" {
		err := errors.New(errors.CollectionFault, "executor returned a result without status")
		d.logger.Error("Error in task: "+err.Message, log.Int("index", stmt.Index))
		return result.Fault(stmt, result.StatusCollectionFault, started, err)
	}
	return res
}

func (d *Dispatcher) notStarted(stmt statement.Statement, cause error) result.ExecutionResult {
	err := errors.InvocationFaultf(cause, "statement not started")
	d.logger.Error(fmt.Sprintf("Exception executing query: %s - %s", stmt.Text, err.Error()),
		log.Int("index", stmt.Index))
	return result.Fault(stmt, result.StatusInvocationFault, time.Now(), err)
}

func (d *Dispatcher) report(s result.Summary) {
	msg := fmt.Sprintf("Complete total execution sql statement: %d with successfully execute: %d", s.Total, s.OK)
	attrs := []any{log.Int("skipped", s.Skipped), log.Duration("elapsed", s.Elapsed)}
	if !s.AllOK() {
		d.logger.Warn(msg, attrs...)
		return
	}
	d.logger.Info(msg, attrs...)
}

// statementTask adapts one statement to the worker pool.
type statementTask struct {
	stmt statement.Statement
	run  func(context.Context, statement.Statement) result.ExecutionResult
	out  chan<- result.ExecutionResult
}

func (t *statementTask) Execute(ctx context.Context) {
	t.out <- t.run(ctx, t.stmt)
}
