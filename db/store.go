// ABOUTME: Record store over SQLite for intake entities
// ABOUTME: Store wraps *sql.DB and satisfies the conversion engine's interface
package db

import (
	"database/sql"
	"errors"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// Store provides CRUD operations for intake sessions, templates, customers,
// quotes, and users. It satisfies convert.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
