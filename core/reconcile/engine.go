package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Options controls a reconciliation run.
type Options struct {
	// DryRun reports "would upload" instead of uploading and never mutates the inventory.
	DryRun bool

	// Policy decides what happens to documents whose category cannot be resolved.
	Policy Policy

	// KnownBad is the set of fingerprints that are always skipped. May be nil.
	KnownBad *KnownBadSet

	// Pacer spaces out documents and pages. Nil disables pacing.
	Pacer *Pacer

	// StartPage is the first catalog page Run requests.
	StartPage int
}

// Engine decides, per document, whether to upload, skip or abort, and performs the upload.
// Documents and pages are processed strictly one at a time.
type Engine struct {
	store     ContentStore
	source    FingerprintSource
	inventory *Inventory
	opts      Options
	logger    *zap.Logger
	observers []Observer

	warned  map[string]struct{}
	summary Summary
	now     func() time.Time
}

// NewEngine wires an engine for one run. The inventory is created empty.
func NewEngine(store ContentStore, source FingerprintSource, opts Options, logger *zap.Logger, observers ...Observer) *Engine {
	if opts.Pacer == nil {
		opts.Pacer = NewPacer(0, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		source:    source,
		inventory: NewInventory(store),
		opts:      opts,
		logger:    logger,
		observers: observers,
		warned:    make(map[string]struct{}),
		now:       time.Now,
	}
}

// Inventory exposes the run's inventory cache.
func (e *Engine) Inventory() *Inventory {
	return e.inventory
}

// Summary returns the counters accumulated so far.
func (e *Engine) Summary() Summary {
	return e.summary
}

// Run walks the catalog from Options.StartPage until the walker reports the last page.
// It stops at the first fatal error; partially processed pages are not retried.
func (e *Engine) Run(ctx context.Context, walker PageWalker) (Summary, error) {
	e.summary.StartedAt = e.now()
	defer func() { e.summary.FinishedAt = e.now() }()

	for page := e.opts.StartPage; ; page++ {
		last, docs, err := walker.ScrapePage(ctx, page)
		if err != nil {
			return e.summary, fmt.Errorf("scrape page %d: %w", page, err)
		}

		e.logger.Info("Processing page",
			zap.Int("page", page),
			zap.Int("documents", len(docs)),
			zap.Bool("last", last),
		)

		if err := e.ProcessPage(ctx, page, docs); err != nil {
			return e.summary, err
		}
		e.summary.Pages++

		if last {
			return e.summary, nil
		}
		if err := e.opts.Pacer.BetweenPages(ctx); err != nil {
			return e.summary, err
		}
	}
}

// ProcessPage evaluates every document of one page in order.
func (e *Engine) ProcessPage(ctx context.Context, page int, docs []Document) error {
	for i, doc := range docs {
		if err := e.opts.Pacer.BeforeItem(ctx); err != nil {
			return err
		}
		if _, err := e.ProcessDocument(ctx, page, i, len(docs), doc); err != nil {
			return err
		}
	}
	return nil
}

// ProcessDocument runs the decision for a single document and performs its side effects.
// The returned error is non-nil only when the whole run must stop.
func (e *Engine) ProcessDocument(ctx context.Context, page, index, total int, doc Document) (Event, error) {
	ev := Event{Page: page, Index: index, Total: total, Decision: Decision{Document: doc}}
	l := e.logger.With(
		zap.String("progress", ev.Progress()),
		zap.String("code", doc.CategoryCode),
		zap.String("title", doc.Title),
	)

	l.Info("Processing exam", zap.String("period", doc.AcademicPeriod))

	artifact, err := e.source.FetchAndHash(ctx, doc.SourceReference)
	if err != nil {
		return ev, fmt.Errorf("download %s: %w", doc, err)
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			l.Warn("Failed to release downloaded exam", zap.Error(err))
		}
	}()

	fp := artifact.Fingerprint
	ev.Decision.Fingerprint = fp
	l = l.With(zap.String("hash", fp.Hex()))
	l.Debug("Downloaded exam", zap.Int64("size", artifact.Size), zap.Int("pages", artifact.PageCount))

	if e.opts.KnownBad.Contains(fp) {
		l.Info("Skipping exam due to known bad hash")
		ev.Decision.Kind = DecisionSkipKnownBad
		e.emit(ev)
		return ev, nil
	}

	category, err := e.inventory.Get(ctx, doc.CategoryCode)
	if err != nil {
		var cre *CategoryResolutionError
		if !errors.As(err, &cre) {
			return ev, err
		}
		ev.Err = cre

		if e.opts.Policy.Decide(doc.CategoryCode, cre) == VerdictFatal {
			ev.Decision.Kind = DecisionEscalateUnknownCategory
			e.emit(ev)
			return ev, fmt.Errorf("%w %s (%s): %w", ErrFatalCategory, doc.CategoryCode, doc.Title, cre)
		}

		if _, seen := e.warned[doc.CategoryCode]; seen {
			l.Debug("Skipping exam with unknown category code")
		} else {
			e.warned[doc.CategoryCode] = struct{}{}
			l.Warn("Skipping exam: category code does not exist at the destination",
				zap.String("policy", e.opts.Policy.String()))
		}
		ev.Decision.Kind = DecisionSkipUnknownCategory
		e.emit(ev)
		return ev, nil
	}

	if category.Contains(fp) {
		l.Info("Skipping upload: already exists")
		ev.Decision.Kind = DecisionSkipDuplicate
		e.emit(ev)
		return ev, nil
	}

	ev.Decision.Kind = DecisionUpload
	if e.opts.DryRun {
		l.Info("Skipping upload: dry run")
		ev.Outcome = OutcomeDryRun
		e.emit(ev)
		return ev, nil
	}

	l.Debug("Uploading exam", zap.String("category", string(category.ID)))
	url, err := e.store.Upload(ctx, category.ID, doc, artifact)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ev, ctxErr
		}
		l.Error("Upload failed", zap.Error(err))
		ev.Outcome = OutcomeUploadFailed
		ev.Err = err
		e.emit(ev)
		return ev, nil
	}

	if err := e.inventory.Record(doc.CategoryCode, fp); err != nil {
		return ev, err
	}
	l.Info("Uploaded exam", zap.String("url", url))
	ev.Outcome = OutcomeRecorded
	ev.URL = url
	e.emit(ev)
	return ev, nil
}

func (e *Engine) emit(ev Event) {
	e.summary.add(ev)
	for _, o := range e.observers {
		o.Observe(ev)
	}
}
