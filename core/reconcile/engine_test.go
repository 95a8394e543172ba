package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory destination that keeps uploads across runs.
type fakeStore struct {
	categories   map[string]CategoryID
	existing     map[CategoryID][]Fingerprint
	resolveErr   error
	listErr      error
	uploadErr    error
	resolveCalls map[string]int
	listCalls    map[CategoryID]int
	uploads      []Fingerprint
}

func newFakeStore(codes ...string) *fakeStore {
	s := &fakeStore{
		categories:   make(map[string]CategoryID),
		existing:     make(map[CategoryID][]Fingerprint),
		resolveCalls: make(map[string]int),
		listCalls:    make(map[CategoryID]int),
	}
	for _, code := range codes {
		s.categories[code] = CategoryID("cat-" + code)
	}
	return s
}

func (s *fakeStore) ResolveCategory(ctx context.Context, code string) (CategoryID, error) {
	s.resolveCalls[code]++
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	id, ok := s.categories[code]
	if !ok {
		return "", &CategoryResolutionError{Code: code}
	}
	return id, nil
}

func (s *fakeStore) ListExistingFingerprints(ctx context.Context, id CategoryID) ([]Fingerprint, error) {
	s.listCalls[id]++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]Fingerprint(nil), s.existing[id]...), nil
}

func (s *fakeStore) Upload(ctx context.Context, id CategoryID, doc Document, artifact *Artifact) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.existing[id] = append(s.existing[id], artifact.Fingerprint)
	s.uploads = append(s.uploads, artifact.Fingerprint)
	return fmt.Sprintf("https://dest.example/%s/%s", id, artifact.Fingerprint.Hex()[:8]), nil
}

func (s *fakeStore) totalResolveCalls() int {
	n := 0
	for _, c := range s.resolveCalls {
		n += c
	}
	return n
}

// fakeSource serves fixed content per reference.
type fakeSource struct {
	content  map[string][]byte
	err      error
	fetched  []string
	released int
}

func (f *fakeSource) FetchAndHash(ctx context.Context, ref string) (*Artifact, error) {
	f.fetched = append(f.fetched, ref)
	if f.err != nil {
		return nil, f.err
	}
	content, ok := f.content[ref]
	if !ok {
		return nil, &TransportError{Op: "GET " + ref, Status: 404, Err: errors.New("not found")}
	}
	a := BytesArtifact(content)
	a.release = func() error {
		f.released++
		return nil
	}
	return a, nil
}

// walker serves pre-built pages.
type walker struct {
	pages   [][]Document
	err     error
	errPage int
	calls   []int
}

func (w *walker) ScrapePage(ctx context.Context, page int) (bool, []Document, error) {
	w.calls = append(w.calls, page)
	if w.err != nil && page == w.errPage {
		return false, nil, w.err
	}
	return page == len(w.pages)-1, w.pages[page], nil
}

type recorder struct {
	events []Event
}

func (r *recorder) Observe(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []DecisionKind {
	out := make([]DecisionKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Decision.Kind
	}
	return out
}

var (
	contentA = []byte("%PDF-1.4 exam A")
	contentB = []byte("%PDF-1.4 exam B")
	fpA      = FingerprintOf(contentA)
	fpB      = FingerprintOf(contentB)
)

func doc(ref, code string) Document {
	return Document{Title: "Exam " + ref, CategoryCode: code, AcademicPeriod: "2024 May", SourceReference: ref}
}

func newSource() *fakeSource {
	return &fakeSource{content: map[string][]byte{"a1": contentA, "b1": contentB, "a2": contentA}}
}

func newTestEngine(store *fakeStore, src *fakeSource, opts Options, obs ...Observer) *Engine {
	return NewEngine(store, src, opts, zap.NewNop(), obs...)
}

// TestEngine_DuplicateWithinRun covers the [A, B, A] scenario on an empty category.
func TestEngine_DuplicateWithinRun(t *testing.T) {
	store := newFakeStore("INFR101")
	rec := &recorder{}
	engine := newTestEngine(store, newSource(), Options{}, rec)

	err := engine.ProcessPage(context.Background(), 0, []Document{
		doc("a1", "INFR101"), doc("b1", "INFR101"), doc("a2", "INFR101"),
	})
	require.NoError(t, err)

	assert.Equal(t, []DecisionKind{DecisionUpload, DecisionUpload, DecisionSkipDuplicate}, rec.kinds())
	assert.Equal(t, fpA, rec.events[0].Decision.Fingerprint)
	assert.Equal(t, fpB, rec.events[1].Decision.Fingerprint)
	assert.Equal(t, OutcomeRecorded, rec.events[0].Outcome)
	assert.NotEmpty(t, rec.events[0].URL)
	assert.Equal(t, []Fingerprint{fpA, fpB}, store.uploads)

	// One resolution and one listing for the whole category.
	assert.Equal(t, 1, store.resolveCalls["INFR101"])
	assert.Equal(t, 1, store.listCalls["cat-INFR101"])

	s := engine.Summary()
	assert.Equal(t, 3, s.Documents)
	assert.Equal(t, 2, s.Uploaded)
	assert.Equal(t, 1, s.Duplicates)
}

func TestEngine_ExistingInventoryIsDuplicate(t *testing.T) {
	store := newFakeStore("INFR101")
	store.existing["cat-INFR101"] = []Fingerprint{fpA}
	rec := &recorder{}
	engine := newTestEngine(store, newSource(), Options{}, rec)

	err := engine.ProcessPage(context.Background(), 0, []Document{doc("a1", "INFR101"), doc("b1", "INFR101")})
	require.NoError(t, err)

	assert.Equal(t, []DecisionKind{DecisionSkipDuplicate, DecisionUpload}, rec.kinds())
	assert.Equal(t, []Fingerprint{fpB}, store.uploads)
}

func TestEngine_DuplicateIsPerCategory(t *testing.T) {
	store := newFakeStore("INFR101", "INFR102")
	rec := &recorder{}
	engine := newTestEngine(store, newSource(), Options{}, rec)

	err := engine.ProcessPage(context.Background(), 0, []Document{doc("a1", "INFR101"), doc("a2", "INFR102")})
	require.NoError(t, err)

	assert.Equal(t, []DecisionKind{DecisionUpload, DecisionUpload}, rec.kinds())
}

// TestEngine_KnownBadPrecedence checks that a known-bad file never reaches category resolution.
func TestEngine_KnownBadPrecedence(t *testing.T) {
	store := newFakeStore()
	src := newSource()
	rec := &recorder{}
	engine := newTestEngine(store, src, Options{KnownBad: NewKnownBadSet(fpA)}, rec)

	ev, err := engine.ProcessDocument(context.Background(), 0, 0, 1, doc("a1", "INFR404"))
	require.NoError(t, err)

	assert.Equal(t, DecisionSkipKnownBad, ev.Decision.Kind)
	assert.Equal(t, 0, store.totalResolveCalls())
	assert.Empty(t, store.uploads)
	assert.Equal(t, 1, src.released)
}

func TestEngine_StrictPolicyAbortsRun(t *testing.T) {
	store := newFakeStore("INFR101")
	src := newSource()
	rec := &recorder{}
	engine := newTestEngine(store, src, Options{Policy: StrictPolicy()}, rec)

	err := engine.ProcessPage(context.Background(), 0, []Document{
		doc("a1", "EPCC999"), doc("b1", "INFR101"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalCategory)

	var cre *CategoryResolutionError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, "EPCC999", cre.Code)

	// The second document is never downloaded.
	assert.Equal(t, []string{"a1"}, src.fetched)
	assert.Equal(t, []DecisionKind{DecisionEscalateUnknownCategory}, rec.kinds())
	assert.Empty(t, store.uploads)
}

func TestEngine_TolerantPolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		code      string
		wantFatal bool
	}{
		{"TolerateAll", TolerateAllPolicy(), "EPCC200", false},
		{"MatchingPrefix", TolerancePrefixesPolicy("INFR"), "INFR101", false},
		{"OtherPrefix", TolerancePrefixesPolicy("INFR"), "EPCC200", true},
		{"Strict", StrictPolicy(), "INFR101", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			rec := &recorder{}
			engine := newTestEngine(store, newSource(), Options{Policy: tt.policy}, rec)

			ev, err := engine.ProcessDocument(context.Background(), 0, 0, 1, doc("a1", tt.code))
			if tt.wantFatal {
				assert.ErrorIs(t, err, ErrFatalCategory)
				assert.Equal(t, DecisionEscalateUnknownCategory, ev.Decision.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DecisionSkipUnknownCategory, ev.Decision.Kind)
			assert.True(t, IsCategoryResolution(ev.Err))
		})
	}
}

func TestEngine_UnknownCategoryResolvedOnce(t *testing.T) {
	store := newFakeStore()
	rec := &recorder{}
	engine := newTestEngine(store, newSource(), Options{Policy: TolerateAllPolicy()}, rec)

	err := engine.ProcessPage(context.Background(), 0, []Document{doc("a1", "EPCC999"), doc("b1", "EPCC999")})
	require.NoError(t, err)

	assert.Equal(t, []DecisionKind{DecisionSkipUnknownCategory, DecisionSkipUnknownCategory}, rec.kinds())
	assert.Equal(t, 1, store.resolveCalls["EPCC999"])
	assert.Equal(t, 2, engine.Summary().UnknownCategory)
}

func TestEngine_DryRunPurity(t *testing.T) {
	store := newFakeStore("INFR101")
	rec := &recorder{}
	engine := newTestEngine(store, newSource(), Options{DryRun: true}, rec)

	err := engine.ProcessPage(context.Background(), 0, []Document{
		doc("a1", "INFR101"), doc("b1", "INFR101"), doc("a2", "INFR101"),
	})
	require.NoError(t, err)

	assert.Empty(t, store.uploads)
	for _, ev := range rec.events {
		assert.Equal(t, DecisionUpload, ev.Decision.Kind)
		assert.Equal(t, OutcomeDryRun, ev.Outcome)
	}

	cat, err := engine.Inventory().Get(context.Background(), "INFR101")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Len())
	assert.Equal(t, 3, engine.Summary().WouldUpload)
}

func TestEngine_UploadFailureContinues(t *testing.T) {
	store := newFakeStore("INFR101")
	store.uploadErr = &UploadError{Status: 500, Message: "boom"}
	rec := &recorder{}
	engine := newTestEngine(store, newSource(), Options{}, rec)

	err := engine.ProcessPage(context.Background(), 0, []Document{doc("a1", "INFR101"), doc("a2", "INFR101")})
	require.NoError(t, err)

	require.Len(t, rec.events, 2)
	for _, ev := range rec.events {
		assert.Equal(t, DecisionUpload, ev.Decision.Kind)
		assert.Equal(t, OutcomeUploadFailed, ev.Outcome)
		var ue *UploadError
		assert.ErrorAs(t, ev.Err, &ue)
	}

	cat, err := engine.Inventory().Get(context.Background(), "INFR101")
	require.NoError(t, err)
	assert.False(t, cat.Contains(fpA))
	assert.Equal(t, 2, engine.Summary().UploadFailed)
}

func TestEngine_FetchErrorIsFatal(t *testing.T) {
	store := newFakeStore("INFR101")
	src := newSource()
	src.err = &TransportError{Op: "GET a1", Err: errors.New("connection reset")}
	engine := newTestEngine(store, src, Options{})

	err := engine.ProcessPage(context.Background(), 0, []Document{doc("a1", "INFR101"), doc("b1", "INFR101")})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Len(t, src.fetched, 1)
}

func TestEngine_ListingErrorIsFatal(t *testing.T) {
	store := newFakeStore("INFR101")
	store.listErr = &TransportError{Op: "list", Status: 502, Err: errors.New("bad gateway")}
	engine := newTestEngine(store, newSource(), Options{Policy: TolerateAllPolicy()})

	_, err := engine.ProcessDocument(context.Background(), 0, 0, 1, doc("a1", "INFR101"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFatalCategory)
	assert.False(t, engine.Inventory().Loaded("INFR101"))
}

func TestEngine_RunIdempotentRestart(t *testing.T) {
	store := newFakeStore("INFR101", "INFR102")
	w := &walker{pages: [][]Document{
		{doc("a1", "INFR101"), doc("b1", "INFR102")},
		{doc("a2", "INFR101")},
	}}

	first, err := newTestEngine(store, newSource(), Options{}).Run(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Uploaded)
	assert.Equal(t, 2, first.Pages)

	second, err := newTestEngine(store, newSource(), Options{}).Run(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Uploaded)
	assert.Equal(t, 3, second.Duplicates)
	assert.Len(t, store.uploads, 2)
}

func TestEngine_RunStopsOnMalformedPage(t *testing.T) {
	store := newFakeStore("INFR101")
	w := &walker{
		pages:   [][]Document{{doc("a1", "INFR101")}, {doc("b1", "INFR101")}},
		err:     &MalformedResponseError{Detail: "searchResult not found"},
		errPage: 1,
	}

	summary, err := newTestEngine(store, newSource(), Options{}).Run(context.Background(), w)
	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, []int{0, 1}, w.calls)
}

func TestEngine_RunPacing(t *testing.T) {
	store := newFakeStore("INFR101")
	w := &walker{pages: [][]Document{
		{doc("a1", "INFR101"), doc("b1", "INFR101")},
		{doc("a2", "INFR101")},
	}}

	var slept []time.Duration
	pacer := NewPacer(time.Second, time.Second, 15*time.Second).WithSleeper(SleeperFunc(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	_, err := newTestEngine(store, newSource(), Options{Pacer: pacer}).Run(context.Background(), w)
	require.NoError(t, err)

	// Two items, one page gap, one item. No delay after the last page.
	assert.Equal(t, []time.Duration{time.Second, time.Second, 15 * time.Second, time.Second}, slept)
}

func TestEngine_RunStartPage(t *testing.T) {
	store := newFakeStore("INFR101")
	w := &walker{pages: [][]Document{{doc("a1", "INFR101")}, {doc("b1", "INFR101")}}}

	summary, err := newTestEngine(store, newSource(), Options{StartPage: 1}).Run(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, w.calls)
	assert.Equal(t, 1, summary.Uploaded)
}

func TestEngine_CancelledDuringPacing(t *testing.T) {
	store := newFakeStore("INFR101")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pacer := NewPacer(time.Hour, time.Hour, time.Hour)
	err := newTestEngine(store, newSource(), Options{Pacer: pacer}).ProcessPage(ctx, 0, []Document{doc("a1", "INFR101")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.uploads)
}
