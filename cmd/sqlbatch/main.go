package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dshills/sqlbatch/internal/client"
	"github.com/dshills/sqlbatch/internal/config"
	"github.com/dshills/sqlbatch/internal/dispatch"
	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/log"
	"github.com/dshills/sqlbatch/internal/report"
	"github.com/dshills/sqlbatch/internal/result"
	"github.com/dshills/sqlbatch/internal/statement"
)

var (
	version = "0.1.0"
	commit  = "unknown"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFatal    = 1
	exitFailures = 2
	exitReport   = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sqlbatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file        = fs.String("file", "", "Path to file that contains the SQL statements (required)")
		configFile  = fs.String("config", "", "Path to configuration file (.json, .yaml)")
		envFile     = fs.String("env", "", "Path to .env file (default: ./.env if present)")
		logFile     = fs.String("log-file", "", "Append-only log file")
		logLevel    = fs.String("log-level", "", "Log level (debug, info, warn, error)")
		maxWorkers  = fs.Int("max-workers", 0, "Maximum concurrent client processes")
		timeout     = fs.String("timeout", "", "Per-statement client timeout, 0 disables")
		strategy    = fs.String("strategy", "", "Dispatch strategy (pool, group)")
		showVersion = fs.Bool("version", false, "Show version information")
	)

	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	if *showVersion {
		fmt.Fprintf(stdout, "sqlbatch v%s (commit: %s)\n", version, commit)
		return exitOK
	}

	if *file == "" {
		fmt.Fprintln(stderr, "the --file flag is required")
		fs.Usage()
		return exitFatal
	}

	// Load configuration
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			printError(stderr, "Failed to load config file", err)
			return exitFatal
		}
	} else {
		cfg = config.DefaultConfig()
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	if err := cfg.LoadFromEnv(envFiles...); err != nil {
		printError(stderr, "Failed to load environment", err)
		return exitFatal
	}

	// Override config with command-line flags
	cfg.LoadFromFlags(*logFile, *logLevel, *maxWorkers, *timeout, *strategy)
	if err := cfg.Validate(); err != nil {
		printError(stderr, "Invalid configuration", err)
		return exitFatal
	}

	baseLogger, logCloser, err := log.Configure(cfg.Log)
	if err != nil {
		printError(stderr, "Failed to open log file", err)
		return exitFatal
	}
	defer logCloser.Close()

	runID := uuid.NewString()
	logger := baseLogger.With(log.String("run_id", runID))

	cli, err := client.New(cfg.Client, logger)
	if err != nil {
		logger.Error("Failed to configure client", log.Err(err))
		printError(stderr, "Invalid client configuration", err)
		return exitFatal
	}
	logger.Debug("client configured",
		log.String("command", cli.String()),
		log.String("strategy", cfg.Strategy),
		log.Int("max_workers", cfg.MaxWorkers),
		log.Bool("skip_empty", cfg.SkipEmpty),
		log.Bool("fail_on_error", cfg.FailOnError),
	)

	stmts, err := statement.Read(*file, logger)
	if err != nil {
		logger.Error("Failed to read statements", log.Err(err))
		printError(stderr, "Failed to read statements", err)
		return exitFatal
	}

	writer, err := report.Open(cfg.Report)
	if err != nil {
		logger.Error("Failed to open report", log.Err(err))
		printError(stderr, "Failed to open report", err)
		return exitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := dispatch.New(cli, dispatch.Options{
		RunID:      runID,
		MaxWorkers: cfg.MaxWorkers,
		Strategy:   cfg.Strategy,
		SkipBlank:  cfg.SkipEmpty,
	}, logger)
	started := time.Now()
	summary, results := d.RunAll(ctx, stmts)
	log.Latency(logger, started, "dispatch")

	fmt.Fprintf(stdout, "run %s: %d statements, %d succeeded, %d failed, %d skipped (%d workers, %s)\n",
		runID, summary.Total, summary.OK, summary.Failed(), summary.Skipped, summary.Workers, summary.Elapsed)

	code := exitOK
	if !summary.AllOK() && cfg.FailOnError {
		code = exitFailures
	}

	if writer != nil {
		// the signal context may be done by now; the report is still written
		rerr := writer.Write(context.Background(), report.Run{File: *file, Summary: summary, Results: results})
		if cerr := writer.Close(); rerr == nil {
			rerr = cerr
		}
		if rerr != nil {
			logger.Error("Failed to write report", log.Err(rerr))
			printError(stderr, "Failed to write report", rerr)
			code = exitReport
		}
	}

	if code == exitFailures {
		writeFailures(stderr, results)
	}
	return code
}

// writeFailures lists the statements that did not succeed.
func writeFailures(w io.Writer, results []result.ExecutionResult) {
	for _, e := range report.Entries(results) {
		if e.Succeeded || e.Status == result.StatusSkipped {
			continue
		}
		fmt.Fprintf(w, "  #%d %s [%s] %s\n", e.Index, e.Status, e.Code, abbreviate(strings.TrimSpace(e.Statement), 60))
	}
}

// abbreviate cuts s to at most n bytes on a rune boundary.
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// printError writes err to w, followed by its hint when it carries one.
func printError(w io.Writer, prefix string, err error) {
	fmt.Fprintf(w, "%s: %v\n", prefix, err)
	if hint := errors.GetError(err).Hint; hint != "" {
		fmt.Fprintf(w, "  hint: %s\n", hint)
	}
}
