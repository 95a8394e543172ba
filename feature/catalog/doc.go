// Package catalog reads the source exam catalog, a DSpace discovery API.
//
// Walker implements reconcile.PageWalker: it requests one search page at a time,
// filtered to the configured school and to items with an original PDF, and turns
// every result into a reconcile.Document. Any deviation from the expected response
// shape is reported as a *reconcile.MalformedResponseError so the run stops instead
// of silently mirroring nothing.
//
// Fetcher implements reconcile.FingerprintSource: it streams a paper to a temporary
// file while hashing it and checks with pdfcpu that the payload is a PDF. An HTML
// page in place of a PDF usually means the session expired.
package catalog
