package sync

import (
	"time"
	"unicode/utf8"
)

// maxReasonLen matches the column width of last_failure_reason.
const maxReasonLen = 500

// backoffDelay maps a consecutive-failure count to the wait before the
// next permitted attempt. A step table rather than true exponential: the
// source tends to come back within hours, so capping at 12h keeps users
// from being stuck a whole day behind.
func backoffDelay(consecutiveFailures int) time.Duration {
	switch {
	case consecutiveFailures <= 1:
		return 1 * time.Hour
	case consecutiveFailures == 2:
		return 3 * time.Hour
	case consecutiveFailures == 3:
		return 6 * time.Hour
	default:
		return 12 * time.Hour
	}
}

// truncateReason caps the stored reason at maxReasonLen bytes without
// splitting a rune: upstream error text is often French, and a dangling
// UTF-8 lead byte would make Postgres reject the whole status row.
func truncateReason(reason string) string {
	if len(reason) <= maxReasonLen {
		return reason
	}
	cut := maxReasonLen
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
