package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	PasswordEncrypted string     `json:"-"`
	CalendarToken     uuid.UUID  `json:"-"`
	LastUpdate        *time.Time `json:"last_update,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// CalendarEvent is one stored planning entry. The external id is only
// unique per user, so identity is the (ID, UserID) pair.
type CalendarEvent struct {
	ID         string    `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	CourseType string    `json:"course_type"`
}

// RefreshStatus tracks the health of the external sync for one user.
// One row per user, created lazily on the first refresh attempt.
type RefreshStatus struct {
	UserID              uuid.UUID
	ConsecutiveFailures int
	LastAttempt         *time.Time
	LastSuccess         *time.Time
	LastFailure         *time.Time
	LastFailureReason   *string
	NextAttempt         *time.Time
	FailureEmailSent    *time.Time
}

// Gated reports whether a new reconciliation attempt is currently blocked
// by the backoff window.
func (s *RefreshStatus) Gated(now time.Time) bool {
	return s.NextAttempt != nil && now.Before(*s.NextAttempt)
}
