package planning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// offsetLayout is the wire format: RFC 3339 except the UTC offset has no
// colon ("2026-01-12T08:00:00+0100").
const offsetLayout = "2006-01-02T15:04:05-0700"

// APITime wraps time.Time with the planning source's timestamp quirks.
type APITime struct {
	time.Time
}

func (t *APITime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)

	// Both colon-less and standard offsets appear in the wild; try the
	// source's own format first.
	parsed, err := time.Parse(offsetLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return fmt.Errorf("invalid planning timestamp %q: %w", s, err)
	}

	t.Time = parsed
	return nil
}

func (t APITime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(offsetLayout))
}
