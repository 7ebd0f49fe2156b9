// internal/store/store.go

// Package store is the PostgreSQL data layer for registrations, journeys,
// crew profiles and assessment results.
package store

import (
	"context"
	"database/sql"

	"sailmatch-workers/internal/common/database"
	"sailmatch-workers/internal/common/logger"
)

// Store wraps the shared postgres client. All methods take a context and
// return typed domain structs; callers never see raw rows.
type Store struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func New(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// NewWithDB builds a Store over a raw *sql.DB, used by tests with sqlmock.
func NewWithDB(db *sql.DB, log logger.Logger) *Store {
	return New(&database.PostgresClient{DB: db}, log)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
