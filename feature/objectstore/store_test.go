package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"testing"

	"exam-mirror/core/reconcile"
	"exam-mirror/core/storage"
	"exam-mirror/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func objects(infos ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(infos))
	for _, info := range infos {
		ch <- info
	}
	close(ch)
	return ch
}

func newStore(client *mocks.Client, autoCreate bool) *Store {
	return NewStore(client, storage.Config{Bucket: "exams", Root: "/categories/", AutoCreate: autoCreate}, nil)
}

func prefixIs(prefix string) any {
	return mock.MatchedBy(func(opts minio.ListObjectsOptions) bool { return opts.Prefix == prefix })
}

func TestStore_ResolveCategory(t *testing.T) {
	t.Run("Exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("ListObjects", mock.Anything, "exams", prefixIs("categories/INFR10001/")).
			Return(objects(minio.ObjectInfo{Key: "categories/INFR10001/.keep"}))

		id, err := newStore(client, false).ResolveCategory(context.Background(), "INFR10001")
		require.NoError(t, err)
		assert.Equal(t, reconcile.CategoryID("categories/INFR10001/"), id)
		client.AssertExpectations(t)
	})

	t.Run("Missing", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("ListObjects", mock.Anything, "exams", mock.Anything).Return(objects())

		_, err := newStore(client, false).ResolveCategory(context.Background(), "INFR404")
		var cre *reconcile.CategoryResolutionError
		require.ErrorAs(t, err, &cre)
		assert.Equal(t, "INFR404", cre.Code)
		client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("AutoCreate", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("ListObjects", mock.Anything, "exams", mock.Anything).Return(objects())
		client.On("PutObject", mock.Anything, "exams", "categories/INFR404/.keep", mock.Anything, int64(0), mock.Anything).
			Return(minio.UploadInfo{}, nil)

		id, err := newStore(client, true).ResolveCategory(context.Background(), "INFR404")
		require.NoError(t, err)
		assert.Equal(t, reconcile.CategoryID("categories/INFR404/"), id)
		client.AssertExpectations(t)
	})

	t.Run("ListError", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("ListObjects", mock.Anything, "exams", mock.Anything).
			Return(objects(minio.ObjectInfo{Err: errors.New("access denied")}))

		_, err := newStore(client, true).ResolveCategory(context.Background(), "INFR1")
		var te *reconcile.TransportError
		require.ErrorAs(t, err, &te)
		assert.False(t, reconcile.IsCategoryResolution(err))
	})

	t.Run("InvalidCode", func(t *testing.T) {
		_, err := newStore(new(mocks.Client), true).ResolveCategory(context.Background(), "../etc")
		assert.True(t, reconcile.IsCategoryResolution(err))
	})
}

func TestStore_ListExistingFingerprints(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "exams", prefixIs("categories/INFR1/")).Return(objects(
		minio.ObjectInfo{Key: "categories/INFR1/.keep"},
		minio.ObjectInfo{Key: "categories/INFR1/a.pdf"},
		minio.ObjectInfo{Key: "categories/INFR1/b.PDF"},
		minio.ObjectInfo{Key: "categories/INFR1/notes.txt"},
	))
	client.On("GetObject", mock.Anything, "exams", "categories/INFR1/a.pdf", mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte("first"))), nil)
	client.On("GetObject", mock.Anything, "exams", "categories/INFR1/b.PDF", mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte("second"))), nil)

	fps, err := newStore(client, false).ListExistingFingerprints(context.Background(), "categories/INFR1/")
	require.NoError(t, err)
	assert.Equal(t, []reconcile.Fingerprint{
		reconcile.FingerprintOf([]byte("first")),
		reconcile.FingerprintOf([]byte("second")),
	}, fps)
	client.AssertExpectations(t)
}

func TestStore_Upload(t *testing.T) {
	content := []byte("%PDF-1.7")
	artifact := reconcile.BytesArtifact(content)
	key := "categories/INFR1/" + artifact.Fingerprint.Hex() + ".pdf"
	doc := reconcile.Document{Title: "Algorithms", CategoryCode: "INFR1", AcademicPeriod: "2023 May"}

	t.Run("Success", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("PutObject", mock.Anything, "exams", key, mock.Anything, int64(len(content)),
			mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
				return opts.ContentType == "application/pdf" && opts.UserMetadata["title"] == "Algorithms"
			})).Return(minio.UploadInfo{Key: key}, nil)
		client.On("EndpointURL").Return(&url.URL{Scheme: "https", Host: "s3.example.test"})

		got, err := newStore(client, false).Upload(context.Background(), "categories/INFR1/", doc, artifact)
		require.NoError(t, err)
		assert.Equal(t, "https://s3.example.test/exams/"+key, got)
		client.AssertExpectations(t)
	})

	t.Run("Rejected", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("PutObject", mock.Anything, "exams", key, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, minio.ErrorResponse{StatusCode: 403, Message: "Access Denied."})

		_, err := newStore(client, false).Upload(context.Background(), "categories/INFR1/", doc, artifact)
		var ue *reconcile.UploadError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, 403, ue.Status)
		assert.Equal(t, "Access Denied.", ue.Message)
	})
}

func TestStore_EnsureBucket(t *testing.T) {
	tests := []struct {
		name       string
		exists     bool
		autoCreate bool
		wantMake   bool
		wantErr    bool
	}{
		{"Exists", true, false, false, false},
		{"MissingNoCreate", false, false, false, true},
		{"MissingCreate", false, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mocks.Client)
			client.On("BucketExists", mock.Anything, "exams").Return(tt.exists, nil)
			if tt.wantMake {
				client.On("MakeBucket", mock.Anything, "exams", mock.Anything).Return(nil)
			}

			err := newStore(client, tt.autoCreate).EnsureBucket(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			client.AssertExpectations(t)
		})
	}
}
