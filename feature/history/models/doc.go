// Package models defines the run ledger tables.
package models
