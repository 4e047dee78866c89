package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// reconcileTimeout bounds one full reconciliation (fetch + replace) once
// the critical section has been entered.
const reconcileTimeout = 2 * time.Minute

// Coordinator is the entry point for refreshes. It guarantees at most one
// reconciliation in flight per user, applies the backoff gate, records the
// outcome and never lets an error escape to the trigger.
type Coordinator struct {
	locks      *keyedLocks
	tracker    *Tracker
	reconciler *Reconciler
	store      Store
	log        *slog.Logger

	// onSuccess runs after a successful reconciliation, outside the
	// failure path (used to drop the cached feed).
	onSuccess func(ctx context.Context, userID uuid.UUID)
}

func NewCoordinator(store Store, tracker *Tracker, reconciler *Reconciler, log *slog.Logger) *Coordinator {
	return &Coordinator{
		locks:      newKeyedLocks(),
		tracker:    tracker,
		reconciler: reconciler,
		store:      store,
		log:        log,
	}
}

// OnSuccess registers a hook invoked after each successful reconciliation.
func (c *Coordinator) OnSuccess(fn func(ctx context.Context, userID uuid.UUID)) {
	c.onSuccess = fn
}

// Refresh runs one gated, serialized refresh for the user. The caller's
// ctx governs only the wait for the per-user lock and the attempt
// bookkeeping; once reconciliation starts it continues on a detached
// context, so a background refresh survives its originating request.
// Refresh never panics out and never returns an error: failures land in
// the refresh status and the logs.
func (c *Coordinator) Refresh(ctx context.Context, userID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("refresh_panic", "user_id", userID, "panic", r)
		}
	}()

	key := userID.String()
	if err := c.locks.Acquire(ctx, key); err != nil {
		c.log.Info("refresh_lock_wait_cancelled", "user_id", userID, "error", err)
		return
	}
	defer c.locks.Release(key)

	st, gated, err := c.tracker.BeginAttempt(ctx, userID)
	if err != nil {
		c.log.Error("refresh_attempt_bookkeeping_failed", "user_id", userID, "error", err)
		return
	}
	if gated {
		return
	}

	// Detached from the trigger's lifetime from here on.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()

	outcome := c.reconciler.Reconcile(dctx, userID)
	if outcome == nil {
		if err := c.tracker.RecordSuccess(dctx, st); err != nil {
			c.log.Error("refresh_status_save_failed", "user_id", userID, "error", err)
		}
		if c.onSuccess != nil {
			c.onSuccess(dctx, userID)
		}
		return
	}

	user, err := c.store.GetUser(dctx, userID)
	if err != nil {
		user = nil // notification skipped, failure still recorded
	}
	if err := c.tracker.RecordFailure(dctx, st, outcome.Error(), user); err != nil {
		c.log.Error("refresh_status_save_failed", "user_id", userID, "error", err)
	}
}

// ReconcileNow is the synchronous variant: it serializes on the same
// per-user lock and returns the outcome directly, bypassing the backoff
// gate. A success still resets the failure streak and disarms the gate,
// so a user fixed by hand is immediately eligible for scheduled
// refreshes again; a failure is reported to the caller without touching
// the streak.
func (c *Coordinator) ReconcileNow(ctx context.Context, userID uuid.UUID) error {
	key := userID.String()
	if err := c.locks.Acquire(ctx, key); err != nil {
		return err
	}
	defer c.locks.Release(key)

	if outcome := c.reconciler.Reconcile(ctx, userID); outcome != nil {
		return outcome
	}
	if st, err := c.store.GetRefreshStatus(ctx, userID); err != nil {
		c.log.Error("refresh_status_load_failed", "user_id", userID, "error", err)
	} else if err := c.tracker.RecordSuccess(ctx, st); err != nil {
		c.log.Error("refresh_status_save_failed", "user_id", userID, "error", err)
	}
	if c.onSuccess != nil {
		c.onSuccess(ctx, userID)
	}
	return nil
}
