// Package history is the run ledger.
//
// Every sync run gets a row in sync_runs and every processed document a row in
// sync_decisions. The Recorder is registered as a reconcile.Observer, so the
// engine writes the ledger without knowing about it. A ledger failure is logged
// and never stops a run.
//
// The serve command exposes the ledger read-only:
//
//	GET /runs                      most recent runs (limit query parameter)
//	GET /runs/:id                  one run with its counters
//	GET /runs/:id/decisions        its decisions (kind query parameter filters)
package history
