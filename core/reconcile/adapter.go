package reconcile

import (
	"bytes"
	"context"
	"io"
)

// PageWalker supplies ordered pages of documents from the source catalog.
type PageWalker interface {
	// ScrapePage returns the documents on the given page and whether it is the last one.
	// A structural problem with the upstream response must be reported as *MalformedResponseError.
	ScrapePage(ctx context.Context, page int) (last bool, docs []Document, err error)
}

// ContentStore is the destination the catalog is mirrored into.
type ContentStore interface {
	// ResolveCategory maps a category code to the destination category.
	// It must return *CategoryResolutionError when the code is not mapped.
	ResolveCategory(ctx context.Context, code string) (CategoryID, error)

	// ListExistingFingerprints fingerprints every item already present in the category.
	ListExistingFingerprints(ctx context.Context, id CategoryID) ([]Fingerprint, error)

	// Upload stores the artifact for doc under the category and returns its destination URL.
	// A rejection by the destination must be reported as *UploadError.
	Upload(ctx context.Context, id CategoryID, doc Document, artifact *Artifact) (string, error)
}

// FingerprintSource downloads a document and fingerprints its content.
type FingerprintSource interface {
	FetchAndHash(ctx context.Context, ref string) (*Artifact, error)
}

// Observer receives one event per processed document.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Artifact is the downloaded content of a document.
// Content may live in memory or in a temporary file; Release frees it.
type Artifact struct {
	Fingerprint Fingerprint
	Size        int64
	PageCount   int

	open    func() (io.ReadCloser, error)
	release func() error
}

// NewArtifact builds an artifact backed by an arbitrary reopenable source.
func NewArtifact(fp Fingerprint, size int64, open func() (io.ReadCloser, error), release func() error) *Artifact {
	return &Artifact{Fingerprint: fp, Size: size, open: open, release: release}
}

// BytesArtifact builds an in-memory artifact and fingerprints it.
func BytesArtifact(content []byte) *Artifact {
	return &Artifact{
		Fingerprint: FingerprintOf(content),
		Size:        int64(len(content)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// Open returns a fresh reader over the content.
func (a *Artifact) Open() (io.ReadCloser, error) {
	return a.open()
}

// Bytes reads the whole content into memory.
func (a *Artifact) Bytes() ([]byte, error) {
	rc, err := a.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Release frees any temporary resource. Safe to call more than once.
func (a *Artifact) Release() error {
	if a == nil || a.release == nil {
		return nil
	}
	release := a.release
	a.release = nil
	return release()
}
