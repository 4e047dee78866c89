package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"aurioncal/internal/models"
)

// GetRefreshStatus loads the user's sync status. A user who has never been
// refreshed gets a fresh zero-valued status; the row itself is only written
// on the first SaveRefreshStatus.
func (s *Store) GetRefreshStatus(ctx context.Context, userID uuid.UUID) (*models.RefreshStatus, error) {
	var st models.RefreshStatus
	err := s.db.Pool.QueryRow(ctx,
		`SELECT user_id, consecutive_failures, last_attempt, last_success,
		        last_failure, last_failure_reason, next_attempt, failure_email_sent
		 FROM user_refresh_status
		 WHERE user_id = $1`,
		userID,
	).Scan(&st.UserID, &st.ConsecutiveFailures, &st.LastAttempt, &st.LastSuccess,
		&st.LastFailure, &st.LastFailureReason, &st.NextAttempt, &st.FailureEmailSent)

	if errors.Is(err, pgx.ErrNoRows) {
		return &models.RefreshStatus{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh status: %w", err)
	}
	return &st, nil
}

func (s *Store) SaveRefreshStatus(ctx context.Context, st *models.RefreshStatus) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO user_refresh_status
		   (user_id, consecutive_failures, last_attempt, last_success,
		    last_failure, last_failure_reason, next_attempt, failure_email_sent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE SET
		   consecutive_failures = EXCLUDED.consecutive_failures,
		   last_attempt = EXCLUDED.last_attempt,
		   last_success = EXCLUDED.last_success,
		   last_failure = EXCLUDED.last_failure,
		   last_failure_reason = EXCLUDED.last_failure_reason,
		   next_attempt = EXCLUDED.next_attempt,
		   failure_email_sent = EXCLUDED.failure_email_sent`,
		st.UserID, st.ConsecutiveFailures, st.LastAttempt, st.LastSuccess,
		st.LastFailure, st.LastFailureReason, st.NextAttempt, st.FailureEmailSent,
	)
	if err != nil {
		return fmt.Errorf("save refresh status: %w", err)
	}
	return nil
}
