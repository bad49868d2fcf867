package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/config"
	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/logging"
	"github.com/JakeFAU/jobingest/internal/metrics"
)

type runOptions struct {
	dryRun   bool
	schedule string
	json     bool
}

// newRunCmd creates the 'run' subcommand.
func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one ingestion pass over every configured site",
		Long: `Fetches each site's listing page, extracts job cards and inserts new
postings into the store. Site failures are logged and counted; the command
only fails when the application cannot start.

With --schedule the pass repeats on a cron expression until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "use an in-memory store instead of the configured backend")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "standard cron expression, e.g. \"0 */6 * * *\"")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print each run summary as JSON on stdout")
	return cmd
}

func runIngest(cmd *cobra.Command, opts runOptions) error {
	var schedule cron.Schedule
	if opts.schedule != "" {
		parsed, err := cron.ParseStandard(opts.schedule)
		if err != nil {
			return fmt.Errorf("parse schedule: %w", err)
		}
		schedule = parsed
	}

	var overrides map[string]any
	if opts.dryRun {
		overrides = map[string]any{"store.backend": config.BackendMemory}
	}
	cfg, err := config.LoadWith(cfgFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, cleanup, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer cleanup()
	defer zap.ReplaceGlobals(logger)()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return fmt.Errorf("init application: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	runOnce := func() {
		summary := a.Run(ctx)
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("write metrics textfile", zap.Error(err))
		}
		if opts.json {
			if err := writeSummary(out, summary); err != nil {
				logger.Warn("write summary", zap.Error(err))
			}
		}
	}

	if schedule == nil {
		runOnce()
		return nil
	}

	cl := cronLogger{logger.Sugar().Named("cron")}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	c.Schedule(schedule, cron.FuncJob(runOnce))
	logger.Info("scheduled runs", zap.String("schedule", opts.schedule))
	c.Start()
	<-ctx.Done()
	logger.Info("shutdown initiated; waiting for the current run")
	<-c.Stop().Done()
	return nil
}

func writeSummary(w io.Writer, summary jobs.Summary) error {
	enc := json.NewEncoder(w)
	return enc.Encode(summary)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
