package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsUserAgentAndJar(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
	}))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := New(Config{UserAgent: "exam-mirror/test", TimeoutSeconds: 5}, jar)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "exam-mirror/test", gotUA)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	assert.Len(t, jar.Cookies(req.URL), 1)
}

func TestTransport_LimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, Config{RequestsPerSecond: 0.001, Burst: 1})}

	// The first request consumes the only token.
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	_, err = client.Do(req)
	assert.Error(t, err)
}
