package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"aurioncal/internal/models"
)

func (s *Store) ListEvents(ctx context.Context, userID uuid.UUID) ([]models.CalendarEvent, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, user_id, title, start_at, end_at, course_type
		 FROM calendar_events
		 WHERE user_id = $1
		 ORDER BY start_at, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Start, &ev.End, &ev.CourseType); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ReplaceEvents swaps the user's whole stored event set for the given one
// and stamps last_update, all in a single transaction. Feed readers never
// observe a partial set: they see the planning from before the swap or
// after it, nothing in between.
func (s *Store) ReplaceEvents(ctx context.Context, userID uuid.UUID, events []models.CalendarEvent, syncedAt time.Time) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM calendar_events WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete old events: %w", err)
	}

	if len(events) > 0 {
		rows := make([][]any, 0, len(events))
		for _, ev := range events {
			rows = append(rows, []any{ev.ID, ev.UserID, ev.Title, ev.Start, ev.End, ev.CourseType})
		}

		// CopyFrom inside the tx keeps the bulk insert atomic with the delete
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"calendar_events"},
			[]string{"id", "user_id", "title", "start_at", "end_at", "course_type"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("bulk insert events: %w", err)
		}
		if copied != int64(len(events)) {
			return fmt.Errorf("bulk insert events: copied %d of %d rows", copied, len(events))
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET last_update = $2 WHERE id = $1`, userID, syncedAt); err != nil {
		return fmt.Errorf("stamp last_update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}

	s.log.Debug("events_replaced", "user_id", userID, "count", len(events))
	return nil
}
