// Package store persists the link table: one row per normalized URL with
// its crawl status, timestamps, failure reason, and artifact paths.
package store

import "database/sql"

// Store wraps a links database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store on an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
