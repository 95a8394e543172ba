package community

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"exam-mirror/core/reconcile"

	"go.uber.org/zap"
)

const (
	// APIKeyHeader carries the collection API key.
	APIKeyHeader = "X-COMMUNITY-SOLUTIONS-API-KEY"

	csrfCookie  = "csrftoken"
	uploadPage  = "/uploadpdf/"
	maxErrorLen = 512
)

// Client talks to the community exam collection. It implements reconcile.ContentStore.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// NewClient creates a client. httpClient must have a cookie jar for the upload CSRF handshake.
func NewClient(httpClient *http.Client, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.ApiKey,
		logger:  logger,
	}
}

// envelope is the {"value": ...} wrapper of every API response.
type envelope[T any] struct {
	Value T `json:"value"`
}

type examFile struct {
	Filename            string `json:"filename"`
	DisplayName         string `json:"displayname"`
	CategoryDisplayName string `json:"category_displayname"`
}

// ResolveCategory maps a course code to a category slug.
func (c *Client) ResolveCategory(ctx context.Context, code string) (reconcile.CategoryID, error) {
	endpoint := c.baseURL + "/api/category/slugfromeuclidcode?code=" + url.QueryEscape(code)
	c.logger.Debug("Determining category slug", zap.String("code", code))

	resp, err := c.get(ctx, endpoint, false)
	if err != nil {
		return "", &reconcile.TransportError{Op: "resolve " + code, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &reconcile.CategoryResolutionError{Code: code, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body envelope[string]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &reconcile.MalformedResponseError{Detail: "slug response", Err: err}
	}
	if body.Value == "" {
		return "", &reconcile.CategoryResolutionError{Code: code, Err: errors.New("empty slug")}
	}
	return reconcile.CategoryID(body.Value), nil
}

// ListExistingFingerprints downloads and hashes every exam in the category.
func (c *Client) ListExistingFingerprints(ctx context.Context, id reconcile.CategoryID) ([]reconcile.Fingerprint, error) {
	slug := string(id)
	c.logger.Debug("Downloading existing exams", zap.String("category", slug))

	var list envelope[[]examFile]
	if err := c.getJSON(ctx, c.baseURL+"/api/category/listexams/"+url.PathEscape(slug)+"/", &list); err != nil {
		return nil, err
	}

	fps := make([]reconcile.Fingerprint, 0, len(list.Value))
	for _, exam := range list.Value {
		c.logger.Debug("Hashing existing exam",
			zap.String("category", exam.CategoryDisplayName),
			zap.String("exam", exam.DisplayName),
			zap.String("filename", exam.Filename),
		)

		var signed envelope[string]
		if err := c.getJSON(ctx, c.baseURL+"/api/exam/pdf/exam/"+url.PathEscape(exam.Filename)+"/", &signed); err != nil {
			return nil, err
		}

		fp, err := c.hashURL(ctx, signed.Value)
		if err != nil {
			return nil, err
		}
		fps = append(fps, fp)
	}

	c.logger.Debug("Hashed existing exams", zap.String("category", slug), zap.Int("count", len(fps)))
	return fps, nil
}

// Upload posts the paper to the category and returns the upload page of the new exam.
func (c *Client) Upload(ctx context.Context, id reconcile.CategoryID, doc reconcile.Document, artifact *reconcile.Artifact) (string, error) {
	token, err := c.csrfToken(ctx)
	if err != nil {
		return "", err
	}

	body, contentType, err := buildUploadForm(string(id), DisplayName(doc), artifact)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/exam/upload/exam/", body)
	if err != nil {
		return "", &reconcile.TransportError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-CSRFToken", token)
	// The CSRF check also requires a same-origin Referer.
	req.Header.Set("Referer", c.baseURL+uploadPage)
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &reconcile.TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorLen))
		return "", &reconcile.UploadError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var created envelope[struct {
		Filename string `json:"filename"`
	}]
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.Value.Filename == "" {
		// The exam exists even when the response cannot be read; point at the category.
		return c.baseURL + "/category/" + url.PathEscape(string(id)), nil
	}
	return c.baseURL + "/exams/" + url.PathEscape(created.Value.Filename), nil
}

// DisplayName is the label an exam gets in the collection.
func DisplayName(doc reconcile.Document) string {
	if doc.AcademicPeriod != "" {
		return doc.AcademicPeriod
	}
	return doc.CategoryCode + " - Unknown diet"
}

func buildUploadForm(category, displayName string, artifact *reconcile.Artifact) (io.Reader, string, error) {
	content, err := artifact.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open artifact: %w", err)
	}
	defer content.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("category", category); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("displayname", displayName); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("file", artifact.Fingerprint.Hex()+".pdf")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// csrfToken loads the upload page so the server sets the CSRF cookie, then reads it from the jar.
func (c *Client) csrfToken(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.baseURL+uploadPage, false)
	if err != nil {
		return "", &reconcile.TransportError{Op: "GET " + uploadPage, Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if c.http.Jar == nil {
		return "", errors.New("upload requires a cookie jar")
	}
	u, err := url.Parse(c.baseURL + uploadPage)
	if err != nil {
		return "", err
	}
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == csrfCookie {
			return cookie.Value, nil
		}
	}
	return "", &reconcile.TransportError{Op: "GET " + uploadPage, Status: resp.StatusCode, Err: errors.New("no csrftoken cookie")}
}

func (c *Client) hashURL(ctx context.Context, target string) (reconcile.Fingerprint, error) {
	resp, err := c.get(ctx, target, false)
	if err != nil {
		return reconcile.Fingerprint{}, &reconcile.TransportError{Op: "download " + path.Base(target), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return reconcile.Fingerprint{}, &reconcile.TransportError{Op: "download " + path.Base(target), Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return reconcile.Fingerprint{}, &reconcile.TransportError{Op: "download " + path.Base(target), Err: err}
	}
	return reconcile.FingerprintOf(content), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	op := "GET " + strings.TrimPrefix(endpoint, c.baseURL)
	resp, err := c.get(ctx, endpoint, true)
	if err != nil {
		return &reconcile.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &reconcile.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &reconcile.MalformedResponseError{Detail: op, Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, authenticated bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if authenticated {
		c.authorize(req)
	}
	return c.http.Do(req)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
}
