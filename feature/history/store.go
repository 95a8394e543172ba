package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exam-mirror/core/reconcile"
	"exam-mirror/feature/history/models"

	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit bounds ListRuns when no limit is given.
const DefaultListLimit = 50

// Store persists runs and decisions.
type Store struct {
	db *gorm.DB
}

// NewStore creates a ledger store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the ledger tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Run{}, &models.Decision{})
}

// CreateRun inserts a new run.
func (s *Store) CreateRun(ctx context.Context, run *models.Run) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// RecordDecision inserts one decision.
func (s *Store) RecordDecision(ctx context.Context, d *models.Decision) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, id string, summary reconcile.Summary, runErr error, finishedAt time.Time) error {
	status := models.RunStatusCompleted
	errText := ""
	if runErr != nil {
		status = models.RunStatusFailed
		errText = runErr.Error()
	}

	res := s.db.WithContext(ctx).Model(&models.Run{}).Where("id = ?", id).Updates(map[string]any{
		"status":           status,
		"finished_at":      finishedAt,
		"pages":            summary.Pages,
		"documents":        summary.Documents,
		"uploaded":         summary.Uploaded,
		"would_upload":     summary.WouldUpload,
		"upload_failed":    summary.UploadFailed,
		"duplicates":       summary.Duplicates,
		"known_bad":        summary.KnownBad,
		"unknown_category": summary.UnknownCategory,
		"error":            errText,
	})
	if res.Error != nil {
		return fmt.Errorf("finish run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var runs []models.Run
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// ListDecisions returns the decisions of a run in processing order, optionally filtered by kind.
func (s *Store) ListDecisions(ctx context.Context, runID, kind string) ([]models.Decision, error) {
	q := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var decisions []models.Decision
	if err := q.Order("id ASC").Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return decisions, nil
}
