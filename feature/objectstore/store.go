package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"exam-mirror/core/reconcile"
	"exam-mirror/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const (
	markerName = ".keep"
	pdfExt     = ".pdf"
)

// Store mirrors exams into a bucket. Each category is a folder {root}/{code}/.
// It implements reconcile.ContentStore.
type Store struct {
	client     storage.Client
	bucket     string
	root       string
	autoCreate bool
	logger     *zap.Logger
}

// NewStore creates a store on client using the bucket and layout from cfg.
func NewStore(client storage.Client, cfg storage.Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		root:       strings.Trim(cfg.Root, "/"),
		autoCreate: cfg.AutoCreate,
		logger:     logger,
	}
}

// EnsureBucket checks the bucket exists, creating it when auto creation is enabled.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return &reconcile.TransportError{Op: "bucket " + s.bucket, Err: err}
	}
	if exists {
		return nil
	}
	if !s.autoCreate {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return &reconcile.TransportError{Op: "create bucket " + s.bucket, Err: err}
	}
	s.logger.Info("Created bucket", zap.String("bucket", s.bucket))
	return nil
}

// Prefix returns the folder of a category code, with a trailing slash.
func (s *Store) Prefix(code string) string {
	if s.root == "" {
		return code + "/"
	}
	return s.root + "/" + code + "/"
}

// ResolveCategory succeeds when the category folder holds at least one object.
func (s *Store) ResolveCategory(ctx context.Context, code string) (reconcile.CategoryID, error) {
	if code == "" || strings.ContainsAny(code, "/\\") {
		return "", &reconcile.CategoryResolutionError{Code: code, Err: errors.New("not a valid folder name")}
	}
	prefix := s.Prefix(code)

	found, err := s.anyObject(ctx, prefix)
	if err != nil {
		return "", err
	}
	if found {
		return reconcile.CategoryID(prefix), nil
	}

	if !s.autoCreate {
		return "", &reconcile.CategoryResolutionError{Code: code, Err: fmt.Errorf("no folder %s in bucket %s", prefix, s.bucket)}
	}

	_, err = s.client.PutObject(ctx, s.bucket, prefix+markerName, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return "", &reconcile.TransportError{Op: "create folder " + prefix, Err: err}
	}
	s.logger.Info("Created category folder", zap.String("prefix", prefix))
	return reconcile.CategoryID(prefix), nil
}

func (s *Store) anyObject(ctx context.Context, prefix string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true, MaxKeys: 1}) {
		if obj.Err != nil {
			return false, &reconcile.TransportError{Op: "list " + prefix, Err: obj.Err}
		}
		return true, nil
	}
	return false, nil
}

// ListExistingFingerprints downloads and hashes every PDF in the category folder.
func (s *Store) ListExistingFingerprints(ctx context.Context, id reconcile.CategoryID) ([]reconcile.Fingerprint, error) {
	prefix := string(id)

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, &reconcile.TransportError{Op: "list " + prefix, Err: obj.Err}
		}
		if strings.EqualFold(path.Ext(obj.Key), pdfExt) {
			keys = append(keys, obj.Key)
		}
	}

	fps := make([]reconcile.Fingerprint, 0, len(keys))
	for _, key := range keys {
		fp, err := s.hashObject(ctx, key)
		if err != nil {
			return nil, err
		}
		fps = append(fps, fp)
	}

	s.logger.Debug("Hashed existing exams", zap.String("prefix", prefix), zap.Int("count", len(fps)))
	return fps, nil
}

func (s *Store) hashObject(ctx context.Context, key string) (reconcile.Fingerprint, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return reconcile.Fingerprint{}, &reconcile.TransportError{Op: "get " + key, Err: err}
	}
	defer obj.Close()

	h := sha256.New()
	if _, err := io.Copy(h, obj); err != nil {
		return reconcile.Fingerprint{}, &reconcile.TransportError{Op: "get " + key, Err: err}
	}
	var fp reconcile.Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// Upload writes the paper as {prefix}{hash}.pdf and returns its URL.
func (s *Store) Upload(ctx context.Context, id reconcile.CategoryID, doc reconcile.Document, artifact *reconcile.Artifact) (string, error) {
	key := string(id) + artifact.Fingerprint.Hex() + pdfExt

	content, err := artifact.Open()
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer content.Close()

	_, err = s.client.PutObject(ctx, s.bucket, key, content, artifact.Size, minio.PutObjectOptions{
		ContentType: "application/pdf",
		UserMetadata: map[string]string{
			"title":  doc.Title,
			"code":   doc.CategoryCode,
			"period": doc.AcademicPeriod,
		},
	})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		msg := resp.Message
		if msg == "" {
			msg = err.Error()
		}
		return "", &reconcile.UploadError{Status: resp.StatusCode, Message: msg}
	}

	return s.ObjectURL(key), nil
}

// ObjectURL returns the path-style URL of an object.
func (s *Store) ObjectURL(key string) string {
	u := *s.client.EndpointURL()
	u.Path = "/" + s.bucket + "/" + key
	return u.String()
}
