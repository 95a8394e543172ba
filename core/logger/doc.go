// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports a colourised console encoding for
// interactive sync runs and a JSON encoding for unattended ones.
//
// # Context Awareness
//
// WithRun tags every entry of a sync run with its run identifier so that log lines can be
// matched with the run ledger. WithRayID does the same for requests served by the ledger API.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: console or json
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log = logger.WithRun(log, runID)
//	log.Info("Processing exam", logger.DocumentFields(doc)...)
package logger
