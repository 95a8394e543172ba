package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"exam-mirror/core/config"
	"exam-mirror/core/database"
	"exam-mirror/core/logger"
	"exam-mirror/core/reconcile"
	"exam-mirror/core/storage"
	"exam-mirror/feature/catalog"
	"exam-mirror/feature/community"
	"exam-mirror/feature/history"
	"exam-mirror/feature/objectstore"
	"exam-mirror/feature/session"
	"exam-mirror/feature/updatecheck"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const continueFlag = "continue-on-unknown-code"

var (
	// Flags for the sync command
	dryRunSync      bool
	continuePrefix  []string
	academicYear    string
	startPage       int
	skipUpdateCheck bool
	verboseSync     bool
)

// syncCmd runs one mirror pass.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror new exam papers to the destination",
	Long: `Walk the catalog from the start page to the last page and upload every paper
the destination does not have yet.

Papers whose course code has no category at the destination stop the run unless
--continue-on-unknown-code is given. Without a value every unknown code is
skipped; with a list only codes starting with one of the prefixes are skipped.

Examples:
  # Report what would be uploaded
  exam-mirror sync --dry-run

  # Skip every unknown course code
  exam-mirror sync --continue-on-unknown-code

  # Only skip unknown INFR and EPCC codes
  exam-mirror sync --continue-on-unknown-code=INFR,EPCC

  # Resume at page 3, only papers from 2023
  exam-mirror sync --start-page 3 --academic-year 2023`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&dryRunSync, "dry-run", false, "Report what would be uploaded without uploading")
	syncCmd.Flags().StringSliceVar(&continuePrefix, continueFlag, nil, "Skip unknown course codes (optionally only those with the given prefixes)")
	syncCmd.Flags().Lookup(continueFlag).NoOptDefVal = ""
	syncCmd.Flags().StringVar(&academicYear, "academic-year", "", "Only mirror papers from this academic year")
	syncCmd.Flags().IntVar(&startPage, "start-page", 0, "First catalog page to process (0-indexed)")
	syncCmd.Flags().BoolVarP(&skipUpdateCheck, "skip-update-check", "u", false, "Skip checking for a newer version")
	syncCmd.Flags().BoolVarP(&verboseSync, "verbose", "v", false, "Print debug logs")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applySyncFlags(cmd, cfg)

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if skipUpdateCheck {
		l.Info("Skipping update check")
	} else {
		updatecheck.NewChecker(nil, cfg.Update, l).Check(ctx, Version)
	}

	opts, err := cfg.Sync.Options(cfg.Catalog.StartPage)
	if err != nil {
		return fmt.Errorf("invalid sync configuration: %w", err)
	}
	if cmd.Flags().Changed(continueFlag) {
		opts.Policy = reconcile.ParsePolicy(continuePrefix, true)
	}

	sess, err := session.New(cfg.Session, cfg.HTTP, session.NewTerminalPrompter(), l)
	if err != nil {
		return err
	}
	if err := sess.Setup(ctx); err != nil {
		return fmt.Errorf("could not set up authenticated session: %w", err)
	}

	store, err := newContentStore(ctx, cfg, sess, l)
	if err != nil {
		return err
	}

	observers := []reconcile.Observer{progressObserver(l)}
	recorder := startLedger(ctx, cfg, opts, l)
	if recorder != nil {
		observers = append(observers, recorder)
		l = logger.WithRun(l, recorder.RunID())
	}

	l.Info("Starting sync",
		zap.Bool("dry_run", opts.DryRun),
		zap.String("destination", cfg.Sync.Destination),
		zap.String("policy", opts.Policy.String()),
		zap.Int("start_page", opts.StartPage),
		zap.String("academic_year", cfg.Catalog.AcademicYear),
	)

	engine := reconcile.NewEngine(
		store,
		catalog.NewFetcher(sess.Client(), cfg.Catalog.TempDir, l),
		opts,
		l,
		observers...,
	)
	summary, runErr := engine.Run(ctx, catalog.NewWalker(sess.Client(), cfg.Catalog, l))

	if recorder != nil {
		if err := recorder.Finish(context.Background(), summary, runErr); err != nil {
			l.Warn("Failed to finish ledger run", zap.Error(err))
		}
	}

	logSummary(l, summary)
	if runErr != nil {
		if errors.Is(runErr, reconcile.ErrFatalCategory) {
			l.Error("Course code has no category at the destination; rerun with --continue-on-unknown-code to skip it")
		}
		return runErr
	}
	return nil
}

func applySyncFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.Sync.DryRun = dryRunSync
	}
	if flags.Changed("academic-year") {
		cfg.Catalog.AcademicYear = academicYear
	}
	if flags.Changed("start-page") {
		cfg.Catalog.StartPage = startPage
	}
	if verboseSync {
		cfg.Log.Level = "debug"
	}
}

func newContentStore(ctx context.Context, cfg *config.Config, sess *session.Session, l *zap.Logger) (reconcile.ContentStore, error) {
	switch cfg.Sync.Destination {
	case reconcile.DestinationCommunity:
		if cfg.Destination.ApiKey == "" {
			return nil, errors.New("destination.api_key (DESTINATION_API_KEY) is required for the community destination")
		}
		// The upload form needs the CSRF cookie, so the session jar is shared.
		return community.NewClient(sess.Client(), cfg.Destination, l), nil
	case reconcile.DestinationObjectStore:
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		store := objectstore.NewStore(client, cfg.Storage, l)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported destination %q", cfg.Sync.Destination)
	}
}

// startLedger records the run when a ledger database is configured. The ledger is optional.
func startLedger(ctx context.Context, cfg *config.Config, opts reconcile.Options, l *zap.Logger) *history.Recorder {
	if !cfg.Database.Enabled {
		return nil
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Warn("Optional ledger database connection failed", zap.Error(err))
		return nil
	}
	store := history.NewStore(db)
	if err := store.Migrate(); err != nil {
		l.Warn("Ledger migration failed", zap.Error(err))
		return nil
	}
	recorder, err := history.StartRun(ctx, store, history.RunInfo{
		DryRun:      opts.DryRun,
		Destination: cfg.Sync.Destination,
		Policy:      opts.Policy.String(),
		StartPage:   opts.StartPage,
	}, l)
	if err != nil {
		l.Warn("Could not record run in ledger", zap.Error(err))
		return nil
	}
	return recorder
}

func progressObserver(l *zap.Logger) reconcile.Observer {
	return reconcile.ObserverFunc(func(ev reconcile.Event) {
		fields := append(logger.DocumentFields(ev.Decision.Document),
			zap.Int("page", ev.Page),
			zap.String("progress", ev.Progress()),
			zap.String("decision", string(ev.Decision.Kind)),
		)
		if ev.Outcome != reconcile.OutcomeNone {
			fields = append(fields, zap.String("outcome", string(ev.Outcome)))
		}
		l.Debug("Decision", fields...)
	})
}

func logSummary(l *zap.Logger, s reconcile.Summary) {
	l.Info("Sync finished",
		zap.Int("pages", s.Pages),
		zap.Int("documents", s.Documents),
		zap.Int("uploaded", s.Uploaded),
		zap.Int("would_upload", s.WouldUpload),
		zap.Int("upload_failed", s.UploadFailed),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("known_bad", s.KnownBad),
		zap.Int("unknown_category", s.UnknownCategory),
		zap.Duration("elapsed", s.FinishedAt.Sub(s.StartedAt)),
	)
}
