package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aurioncal/internal/models"
)

// failureNotifyThreshold is the consecutive-failure count at which the
// user gets told their planning is stuck.
const failureNotifyThreshold = 3

// Tracker maintains the per-user failure/backoff state machine around
// reconciliation attempts.
type Tracker struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewTracker(store Store, notifier Notifier, log *slog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// BeginAttempt stamps last_attempt and decides whether the attempt may
// proceed. When the backoff gate is closed the stamped status is persisted
// and gated=true is returned; the reconciliation engine must not run.
func (t *Tracker) BeginAttempt(ctx context.Context, userID uuid.UUID) (st *models.RefreshStatus, gated bool, err error) {
	st, err = t.store.GetRefreshStatus(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	now := t.now().UTC()
	st.LastAttempt = &now

	if st.Gated(now) {
		if err := t.store.SaveRefreshStatus(ctx, st); err != nil {
			return nil, false, err
		}
		t.log.Info("refresh_gated",
			"user_id", userID,
			"consecutive_failures", st.ConsecutiveFailures,
			"next_attempt", st.NextAttempt,
		)
		return st, true, nil
	}
	return st, false, nil
}

// RecordSuccess resets the streak: failure counters, reason, gate and the
// notification flag all clear so a future degraded streak can alert again.
func (t *Tracker) RecordSuccess(ctx context.Context, st *models.RefreshStatus) error {
	now := t.now().UTC()
	st.ConsecutiveFailures = 0
	st.LastSuccess = &now
	st.LastFailureReason = nil
	st.NextAttempt = nil
	st.FailureEmailSent = nil
	return t.store.SaveRefreshStatus(ctx, st)
}

// RecordFailure advances the streak, arms the backoff gate and, exactly
// once per degraded streak, notifies the user.
func (t *Tracker) RecordFailure(ctx context.Context, st *models.RefreshStatus, reason string, user *models.User) error {
	now := t.now().UTC()
	next := now.Add(backoffDelay(st.ConsecutiveFailures + 1))
	truncated := truncateReason(reason)

	st.ConsecutiveFailures++
	st.LastFailure = &now
	st.LastFailureReason = &truncated
	st.NextAttempt = &next

	shouldNotify := st.ConsecutiveFailures >= failureNotifyThreshold && st.FailureEmailSent == nil
	if shouldNotify {
		st.FailureEmailSent = &now
	}

	if err := t.store.SaveRefreshStatus(ctx, st); err != nil {
		return err
	}

	t.log.Warn("refresh_failed",
		"user_id", st.UserID,
		"reason", truncated,
		"consecutive_failures", st.ConsecutiveFailures,
		"next_attempt", next,
	)

	if shouldNotify && user != nil {
		t.notifier.NotifyFetchFailure(ctx, user.Email, user.LastUpdate)
	}
	return nil
}
