package sync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"aurioncal/internal/models"
	"aurioncal/internal/planning"
)

// Reconciler fetches the authoritative planning for one user and swaps the
// stored event set for it.
type Reconciler struct {
	store   Store
	source  Source
	decrypt Decryptor
	log     *slog.Logger
	now     func() time.Time
}

func NewReconciler(store Store, source Source, decrypt Decryptor, log *slog.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		source:  source,
		decrypt: decrypt,
		log:     log,
		now:     time.Now,
	}
}

// Outcome is a failed reconciliation as a value: a short machine-readable
// reason plus the underlying error for the logs.
type Outcome struct {
	Reason string
	Err    error
}

func (o *Outcome) Error() string {
	if o.Err != nil {
		return o.Reason + ": " + o.Err.Error()
	}
	return o.Reason
}

func (o *Outcome) Unwrap() error { return o.Err }

func failure(reason string, err error) *Outcome {
	return &Outcome{Reason: reason, Err: err}
}

// Reconcile fetches, normalizes and atomically replaces the user's events.
// A nil return means the stored planning now matches the source. On any
// failure storage is untouched and the returned Outcome carries the reason.
func (r *Reconciler) Reconcile(ctx context.Context, userID uuid.UUID) *Outcome {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return failure(ReasonUserNotFound, err)
	}

	password, err := r.decrypt.Decrypt(user.PasswordEncrypted)
	if err != nil || password == "" {
		if err == nil {
			err = errors.New("empty decrypted password")
		}
		return failure(ReasonDecryptionFailed, err)
	}

	now := r.now().UTC()
	from, to := planning.Window(now)
	raw, err := r.source.FetchEvents(ctx, user.Email, password, from, to)
	if err != nil {
		return failure(fetchReason(err), err)
	}

	events := normalizeEvents(raw, userID)
	if err := r.store.ReplaceEvents(ctx, userID, events, now); err != nil {
		return failure(ReasonStorageFailure, err)
	}

	r.log.Info("planning_reconciled",
		"user_id", userID,
		"events", len(events),
		"fetched", len(raw),
	)
	return nil
}

func fetchReason(err error) string {
	switch {
	case errors.Is(err, planning.ErrRejected):
		return ReasonRejected
	case errors.Is(err, planning.ErrMalformed):
		return ReasonMalformed
	default:
		return ReasonUnreachable
	}
}

// normalizeEvents trims ids and titles, deduplicates by case-insensitive
// external id (first occurrence wins), converts instants to UTC and tags
// each event with the owning user.
func normalizeEvents(raw []planning.RawEvent, userID uuid.UUID) []models.CalendarEvent {
	events := make([]models.CalendarEvent, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, re := range raw {
		id := strings.TrimSpace(re.ID)
		if id == "" {
			continue
		}
		key := strings.ToLower(id)
		if seen[key] {
			continue
		}
		seen[key] = true

		events = append(events, models.CalendarEvent{
			ID:         id,
			UserID:     userID,
			Title:      strings.TrimSpace(re.Title),
			Start:      re.Start.Time.UTC(),
			End:        re.End.Time.UTC(),
			CourseType: re.CourseType,
		})
	}
	return events
}
