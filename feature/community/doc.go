// Package community is the content store backed by the community exam collection.
//
// Categories are addressed by slug; a course code is mapped to its slug through
// the collection's lookup endpoint, and an unmapped code is reported as a
// *reconcile.CategoryResolutionError. Existing exams are fingerprinted by
// downloading each one through its signed URL.
//
// Uploads go through the same form the web page uses, so they need the CSRF
// cookie from the upload page plus a matching Referer. The API key comes from
// configuration and is passed in at construction.
package community
