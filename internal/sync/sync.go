// Package sync keeps user calendars reconciled with the external planning
// source: per-user refresh coordination, failure/backoff tracking with
// one-shot alerting, and the atomic event replacement itself.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aurioncal/internal/models"
	"aurioncal/internal/planning"
)

// Store is the slice of persistence the sync engine needs.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ReplaceEvents(ctx context.Context, userID uuid.UUID, events []models.CalendarEvent, syncedAt time.Time) error
	GetRefreshStatus(ctx context.Context, userID uuid.UUID) (*models.RefreshStatus, error)
	SaveRefreshStatus(ctx context.Context, st *models.RefreshStatus) error
}

// Source fetches raw planning events for one set of credentials.
type Source interface {
	FetchEvents(ctx context.Context, email, password string, from, to time.Time) ([]planning.RawEvent, error)
}

// Decryptor recovers the plaintext external-source password.
type Decryptor interface {
	Decrypt(ciphertext string) (string, error)
}

// Notifier alerts a user that their planning has stopped refreshing.
// Implementations are fire-and-forget: they log their own failures.
type Notifier interface {
	NotifyFetchFailure(ctx context.Context, email string, lastKnownGood *time.Time)
}

// Machine-readable failure reasons recorded on the refresh status.
const (
	ReasonUserNotFound     = "user not found"
	ReasonDecryptionFailed = "decryption failed"
	ReasonUnreachable      = "source unreachable"
	ReasonRejected         = "source rejected credentials"
	ReasonMalformed        = "malformed response"
	ReasonStorageFailure   = "storage failure"
)
