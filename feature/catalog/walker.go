package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"exam-mirror/core/reconcile"

	"go.uber.org/zap"
)

const (
	searchPath     = "/server/api/discover/search/objects"
	originalBundle = "ORIGINAL"

	keyIdentifier = "dc.identifier"
	keyIssued     = "dc.date.issued"
	keyTitle      = "dc.title"
)

var issuedLayouts = []string{"2006-01-02", "02-01-2006"}

// Walker pages through the discovery search of the exam catalog.
type Walker struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// NewWalker creates a walker using client, which must carry the authenticated session.
func NewWalker(client *http.Client, cfg Config, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{client: client, cfg: cfg, logger: logger}
}

// SearchURL builds the discovery request for the given page.
func (w *Walker) SearchURL(page int) string {
	q := url.Values{}
	q.Set("sort", "dc.date.accessioned,DESC")
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(w.cfg.pageSize()))
	if w.cfg.AuthorFilter != "" {
		q.Set("f.author", w.cfg.AuthorFilter+",equals")
	}
	q.Set("embed", "bundles/bitstreams")
	q.Set("f.has_content_in_original_bundle", "true,equals")
	if w.cfg.AcademicYear != "" {
		q.Set("f.datetemporal", w.cfg.AcademicYear+",equals")
	}
	return strings.TrimRight(w.cfg.BaseURL, "/") + searchPath + "?" + q.Encode()
}

// ScrapePage fetches one page of search results.
func (w *Walker) ScrapePage(ctx context.Context, page int) (bool, []reconcile.Document, error) {
	op := fmt.Sprintf("GET page %d", page)
	w.logger.Debug("Retrieving catalog page", zap.Int("page", page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.SearchURL(page), nil)
	if err != nil {
		return false, nil, &reconcile.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return false, nil, &reconcile.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil, &reconcile.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, nil, &reconcile.TransportError{Op: op, Err: err}
	}

	last, docs, err := ParseSearchPage(body)
	if err != nil {
		return false, nil, err
	}

	w.logger.Info("Catalog page retrieved",
		zap.Int("page", page),
		zap.Int("documents", len(docs)),
		zap.Bool("last", last),
	)
	return last, docs, nil
}

// ParseSearchPage extracts the documents of one search response and whether it is the last page.
func ParseSearchPage(body []byte) (bool, []reconcile.Document, error) {
	var data searchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return false, nil, &reconcile.MalformedResponseError{Detail: "response is not JSON, is the session logged in?", Err: err}
	}

	if data.Embedded == nil || data.Embedded.SearchResult == nil {
		return false, nil, &reconcile.MalformedResponseError{Detail: "_embedded.searchResult not found"}
	}
	result := data.Embedded.SearchResult

	if result.Page == nil || result.Page.TotalPages == nil || result.Page.Number == nil {
		return false, nil, &reconcile.MalformedResponseError{Detail: "searchResult.page.totalPages/number not found"}
	}
	totalPages, number := *result.Page.TotalPages, *result.Page.Number
	last := totalPages == 0 || totalPages <= number+1

	if result.Embedded == nil || result.Embedded.Objects == nil {
		return false, nil, &reconcile.MalformedResponseError{Detail: "searchResult._embedded.objects not found"}
	}

	objects := *result.Embedded.Objects
	docs := make([]reconcile.Document, 0, len(objects))
	for i, node := range objects {
		doc, err := parseObject(node)
		if err != nil {
			var mre *reconcile.MalformedResponseError
			if errors.As(err, &mre) {
				mre.Detail = fmt.Sprintf("object %d: %s", i, mre.Detail)
			}
			return false, nil, err
		}
		docs = append(docs, doc)
	}

	return last, docs, nil
}

func parseObject(node objectNode) (reconcile.Document, error) {
	if node.Embedded == nil || node.Embedded.IndexableObject == nil {
		return reconcile.Document{}, &reconcile.MalformedResponseError{Detail: "object has no indexableObject"}
	}
	item := node.Embedded.IndexableObject

	if item.Metadata == nil {
		return reconcile.Document{}, &reconcile.MalformedResponseError{Detail: "indexableObject has no metadata"}
	}

	code, ok := firstValue(item.Metadata, keyIdentifier)
	if !ok {
		return reconcile.Document{}, &reconcile.MalformedResponseError{Detail: "metadata missing " + keyIdentifier}
	}
	issued, ok := firstValue(item.Metadata, keyIssued)
	if !ok {
		return reconcile.Document{}, &reconcile.MalformedResponseError{Detail: "metadata missing " + keyIssued}
	}
	title, ok := firstValue(item.Metadata, keyTitle)
	if !ok {
		return reconcile.Document{}, &reconcile.MalformedResponseError{Detail: "metadata missing " + keyTitle}
	}

	if item.Embedded == nil || item.Embedded.Bundles == nil ||
		item.Embedded.Bundles.Embedded == nil || item.Embedded.Bundles.Embedded.Bundles == nil {
		return reconcile.Document{}, &reconcile.MalformedResponseError{Detail: "indexableObject has no bundles"}
	}

	href := ""
	for _, bundle := range *item.Embedded.Bundles.Embedded.Bundles {
		for _, bs := range bundle.Embedded.Bitstreams.Embedded.Bitstreams {
			if bs.BundleName == originalBundle && bs.Links.Content.Href != "" {
				href = bs.Links.Content.Href
				break
			}
		}
		if href != "" {
			break
		}
	}
	if href == "" {
		return reconcile.Document{}, &reconcile.MalformedResponseError{Detail: "no ORIGINAL bitstream for " + code}
	}

	return reconcile.Document{
		Title:           title,
		CategoryCode:    code,
		AcademicPeriod:  FormatPeriod(issued),
		SourceReference: href,
	}, nil
}

func firstValue(md map[string][]metadataValue, key string) (string, bool) {
	values, ok := md[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0].Value, true
}

// FormatPeriod renders an issued date as "2006 Jan". Unparseable dates yield "".
func FormatPeriod(issued string) string {
	issued = strings.TrimSpace(issued)
	for _, layout := range issuedLayouts {
		if t, err := time.Parse(layout, issued); err == nil {
			return t.Format("2006 Jan")
		}
	}
	return ""
}
