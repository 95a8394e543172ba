// Package reconcile implements the exam synchronization pipeline: it decides, for every
// document coming out of the catalog, whether it must be uploaded to the destination,
// skipped, or whether the run has to stop.
//
// The package does no network I/O of its own. It drives three collaborators through
// small interfaces:
//   - PageWalker supplies pages of Documents.
//   - FingerprintSource downloads a Document and computes its SHA-256 Fingerprint.
//   - ContentStore resolves category codes, lists what is already present and uploads.
//
// # Decision order
//
// Every document goes through the same fixed sequence:
//
//  1. Download and fingerprint (always, the fingerprint is the key for every check).
//  2. Known-bad list: skip without touching the destination.
//  3. Category inventory: a resolution failure is handed to the unknown-category Policy
//     (skip or abort the run); a fingerprint already present is a duplicate.
//  4. Upload, or report "would upload" in dry-run mode. A successful upload is recorded
//     in the inventory so a later copy in the same run is caught as a duplicate.
//     A failed upload is reported and the run moves on.
//
// # Inventory
//
// The Inventory is built lazily: the first document of a category triggers exactly one
// resolution, one listing and one fingerprint per existing item. It is rebuilt on every
// run, so restarting after a crash is safe: anything uploaded before the crash is seen
// as a duplicate.
//
// # Pacing
//
// Processing is strictly sequential. A Pacer sleeps a random delay before each document
// and a fixed delay between pages to stay under the catalog's abuse detection.
//
// # Usage
//
//	engine := reconcile.NewEngine(store, fetcher, reconcile.Options{
//	    Policy:   reconcile.StrictPolicy(),
//	    KnownBad: knownBad,
//	    Pacer:    reconcile.NewPacer(time.Second, 5*time.Second, 15*time.Second),
//	}, logger, ledgerObserver)
//
//	summary, err := engine.Run(ctx, walker)
package reconcile
