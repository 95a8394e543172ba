package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document is one candidate exam paper produced by the catalog walker.
type Document struct {
	// Title is the human readable title of the exam.
	Title string `json:"title"`

	// CategoryCode is the course code used to resolve the destination category (e.g. "INFR11130").
	CategoryCode string `json:"category_code"`

	// AcademicPeriod is the exam sitting, e.g. "2024 May". May be empty.
	AcademicPeriod string `json:"academic_period,omitempty"`

	// SourceReference is the opaque locator the fingerprint source downloads from.
	SourceReference string `json:"source_reference"`
}

func (d Document) String() string {
	if d.AcademicPeriod == "" {
		return fmt.Sprintf("%s: %s", d.CategoryCode, d.Title)
	}
	return fmt.Sprintf("%s: %s (%s)", d.CategoryCode, d.Title, d.AcademicPeriod)
}

// FingerprintSize is the length in bytes of a content fingerprint.
const FingerprintSize = sha256.Size

// Fingerprint is the SHA-256 digest of a document's full content.
// It is the only identity used for deduplication.
type Fingerprint [FingerprintSize]byte

// FingerprintOf hashes content.
func FingerprintOf(content []byte) Fingerprint {
	return Fingerprint(sha256.Sum256(content))
}

// ParseFingerprint decodes a hex encoded fingerprint.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	if len(raw) != FingerprintSize {
		return fp, fmt.Errorf("invalid fingerprint %q: want %d bytes, got %d", s, FingerprintSize, len(raw))
	}
	copy(fp[:], raw)
	return fp, nil
}

// MustParseFingerprint is ParseFingerprint for compile-time constants.
func MustParseFingerprint(s string) Fingerprint {
	fp, err := ParseFingerprint(s)
	if err != nil {
		panic(err)
	}
	return fp
}

// Hex returns the lowercase hex encoding.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) String() string {
	return f.Hex()
}

// IsZero reports whether the fingerprint was never set.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// CategoryID is the destination-side identifier a category code resolves to.
type CategoryID string

// DecisionKind is the result of evaluating one document.
type DecisionKind string

const (
	// DecisionUpload means the document is new for its category.
	DecisionUpload DecisionKind = "upload"
	// DecisionSkipDuplicate means the fingerprint is already present in the category.
	DecisionSkipDuplicate DecisionKind = "skip_duplicate"
	// DecisionSkipKnownBad means the fingerprint is on the known-bad list.
	DecisionSkipKnownBad DecisionKind = "skip_known_bad"
	// DecisionSkipUnknownCategory means resolution failed and the policy tolerated it.
	DecisionSkipUnknownCategory DecisionKind = "skip_unknown_category"
	// DecisionEscalateUnknownCategory means resolution failed and the policy made it fatal.
	DecisionEscalateUnknownCategory DecisionKind = "escalate_unknown_category"
)

// Outcome is what happened to an Upload decision.
type Outcome string

const (
	// OutcomeNone is used for every decision other than Upload.
	OutcomeNone Outcome = ""
	// OutcomeRecorded means the upload succeeded and the inventory was updated.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeUploadFailed means the destination rejected the upload; the run continues.
	OutcomeUploadFailed Outcome = "upload_failed"
	// OutcomeDryRun means the upload was suppressed by dry-run mode.
	OutcomeDryRun Outcome = "dry_run"
)

// Decision is the verdict for one document.
type Decision struct {
	Kind     DecisionKind
	Document Document

	// Fingerprint is set for every decision reached after hashing.
	Fingerprint Fingerprint
}

// Event is emitted to observers once per processed document.
type Event struct {
	// Page is the catalog page index the document came from.
	Page int
	// Index is the 0-based position of the document within its page.
	Index int
	// Total is the number of documents on the page.
	Total int

	Decision Decision
	Outcome  Outcome

	// URL is the destination URL of a recorded upload.
	URL string
	// Err carries the upload or resolution error, if any.
	Err error
}

// Progress renders the "i/n" position of the event within its page.
func (e Event) Progress() string {
	return fmt.Sprintf("%d/%d", e.Index+1, e.Total)
}

// Summary aggregates a run.
type Summary struct {
	Pages           int       `json:"pages"`
	Documents       int       `json:"documents"`
	Uploaded        int       `json:"uploaded"`
	WouldUpload     int       `json:"would_upload"`
	UploadFailed    int       `json:"upload_failed"`
	Duplicates      int       `json:"duplicates"`
	KnownBad        int       `json:"known_bad"`
	UnknownCategory int       `json:"unknown_category"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

func (s *Summary) add(ev Event) {
	s.Documents++
	switch ev.Decision.Kind {
	case DecisionUpload:
		switch ev.Outcome {
		case OutcomeRecorded:
			s.Uploaded++
		case OutcomeDryRun:
			s.WouldUpload++
		case OutcomeUploadFailed:
			s.UploadFailed++
		}
	case DecisionSkipDuplicate:
		s.Duplicates++
	case DecisionSkipKnownBad:
		s.KnownBad++
	case DecisionSkipUnknownCategory:
		s.UnknownCategory++
	}
}
