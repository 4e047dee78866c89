// Package store is the persistence layer over Postgres. All timestamps go
// in as UTC; the feed layer converts on the way out.
package store

import (
	"errors"
	"log/slog"

	"aurioncal/internal/db"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing row
// (unique constraint), e.g. two concurrent registrations of one email.
var ErrDuplicate = errors.New("duplicate")

type Store struct {
	db  *db.DB
	log *slog.Logger
}

func New(dbConn *db.DB, log *slog.Logger) *Store {
	return &Store{db: dbConn, log: log}
}
