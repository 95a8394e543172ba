package history

import (
	"context"
	"time"

	"exam-mirror/core/reconcile"
	"exam-mirror/feature/history/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunInfo describes the settings a run was started with.
type RunInfo struct {
	DryRun      bool
	Destination string
	Policy      string
	StartPage   int
}

// Recorder writes every engine event of one run to the ledger. It implements reconcile.Observer.
type Recorder struct {
	store  *Store
	runID  string
	logger *zap.Logger
	now    func() time.Time
	failed bool
}

// StartRun inserts a running run and returns its recorder.
func StartRun(ctx context.Context, store *Store, info RunInfo, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{store: store, runID: uuid.NewString(), logger: logger, now: time.Now}
	run := &models.Run{
		ID:          r.runID,
		Status:      models.RunStatusRunning,
		DryRun:      info.DryRun,
		Destination: info.Destination,
		Policy:      info.Policy,
		StartPage:   info.StartPage,
		StartedAt:   r.now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return r, nil
}

// RunID returns the ledger identifier of the run.
func (r *Recorder) RunID() string {
	return r.runID
}

// Observe stores the event. Ledger failures are logged once and never stop the run.
func (r *Recorder) Observe(ev reconcile.Event) {
	d := DecisionFromEvent(r.runID, ev)
	d.CreatedAt = r.now()
	if err := r.store.RecordDecision(context.Background(), d); err != nil && !r.failed {
		r.failed = true
		r.logger.Warn("Failed to record decision in ledger", zap.Error(err))
	}
}

// Finish stores the summary and final status.
func (r *Recorder) Finish(ctx context.Context, summary reconcile.Summary, runErr error) error {
	return r.store.FinishRun(ctx, r.runID, summary, runErr, r.now())
}

// DecisionFromEvent maps an engine event to a ledger row.
func DecisionFromEvent(runID string, ev reconcile.Event) *models.Decision {
	doc := ev.Decision.Document
	d := &models.Decision{
		RunID:           runID,
		Page:            ev.Page,
		Position:        ev.Index,
		Kind:            string(ev.Decision.Kind),
		Outcome:         string(ev.Outcome),
		CategoryCode:    doc.CategoryCode,
		Title:           doc.Title,
		Period:          doc.AcademicPeriod,
		SourceReference: doc.SourceReference,
		URL:             ev.URL,
	}
	if !ev.Decision.Fingerprint.IsZero() {
		d.Fingerprint = ev.Decision.Fingerprint.Hex()
	}
	if ev.Err != nil {
		d.Error = ev.Err.Error()
	}
	return d
}
