// Package updatecheck warns when a newer release of the tool is published.
//
// The published version file is matched against `VERSION = "x.y.z"`. Network or
// parse failures are logged as warnings; the check never stops a sync.
package updatecheck
