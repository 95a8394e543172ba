package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"exam-mirror/core/reconcile"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

var pdfMagic = []byte("%PDF-")

// Fetcher downloads exam papers to temporary files and fingerprints them.
type Fetcher struct {
	client  *http.Client
	tempDir string
	pdfConf *model.Configuration
	logger  *zap.Logger
}

// NewFetcher creates a fetcher spooling into tempDir ("" for the system default).
func NewFetcher(client *http.Client, tempDir string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Fetcher{client: client, tempDir: tempDir, pdfConf: conf, logger: logger}
}

// FetchAndHash downloads ref and returns a file-backed artifact. The caller must Release it.
func (f *Fetcher) FetchAndHash(ctx context.Context, ref string) (*reconcile.Artifact, error) {
	op := "GET " + ref

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &reconcile.TransportError{Op: op, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &reconcile.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &reconcile.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	file, err := os.CreateTemp(f.tempDir, "exam-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := file.Name()
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(file, hasher), resp.Body)
	if err != nil {
		cleanup()
		return nil, &reconcile.TransportError{Op: op, Err: err}
	}

	pages, err := f.inspect(file)
	if err != nil {
		cleanup()
		return nil, &reconcile.TransportError{Op: op, Err: err}
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	var fp reconcile.Fingerprint
	copy(fp[:], hasher.Sum(nil))

	f.logger.Debug("Downloaded exam",
		zap.String("path", path),
		zap.String("hash", fp.Hex()),
		zap.Int64("size", size),
		zap.Int("pages", pages),
	)

	artifact := reconcile.NewArtifact(fp, size,
		func() (io.ReadCloser, error) { return os.Open(path) },
		func() error { return os.Remove(path) },
	)
	artifact.PageCount = pages
	return artifact, nil
}

// inspect rejects payloads that are not PDFs, which is how an expired session shows up,
// and counts pages. A PDF that pdfcpu cannot read is kept with a zero page count.
func (f *Fetcher) inspect(file *os.File) (int, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	head := make([]byte, 1024)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return 0, errors.New("payload is not a PDF, is the session logged in?")
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	pages, err := api.PageCount(file, f.pdfConf)
	if err != nil {
		f.logger.Warn("Could not read PDF structure", zap.String("path", file.Name()), zap.Error(err))
		return 0, nil
	}
	return pages, nil
}
