// Package server holds the HTTP server configuration for the run ledger API.
//
// The serve command owns the Fiber application; this package only defines the
// listen port and the API key the auth middleware checks.
package server
