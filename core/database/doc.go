// Package database opens the run ledger database.
//
// It wraps GORM to configure either a local SQLite file (the default, no setup required) or a
// shared MySQL server when several machines run the mirror and report into one ledger.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logg.Warn("Run ledger disabled", zap.Error(err))
//	}
package database
