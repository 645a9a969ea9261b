package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxEventCandidates bounds how many name matches FindByName returns.
const maxEventCandidates = 50

// EventRepository handles life event lookups.
type EventRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, ev *Event) error {
	query := `
		INSERT INTO user_events (event_id, user_id, name, start_date, end_date, description, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		ev.ID,
		ev.UserID,
		ev.Name,
		ev.StartDate,
		ev.EndDate,
		ev.Description,
		ev.Category,
	).Scan(&ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// FindByName returns the user's events whose name contains phrase, case-insensitively.
func (r *EventRepository) FindByName(ctx context.Context, userID, phrase string) ([]Event, error) {
	query := `
		SELECT event_id, user_id, name, start_date, end_date, description, category, created_at
		FROM user_events
		WHERE user_id = $1 AND name ILIKE $2 ESCAPE '\'
		ORDER BY start_date ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, userID, "%"+EscapeLike(phrase)+"%", maxEventCandidates)
	if err != nil {
		return nil, fmt.Errorf("querying events by name: %w", err)
	}
	return collectEvents(rows)
}

// ListForUser returns all events for a user, most recent first.
func (r *EventRepository) ListForUser(ctx context.Context, userID string) ([]Event, error) {
	query := `
		SELECT event_id, user_id, name, start_date, end_date, description, category, created_at
		FROM user_events
		WHERE user_id = $1
		ORDER BY start_date DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user events: %w", err)
	}
	return collectEvents(rows)
}

// Delete removes one of the user's events.
func (r *EventRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM user_events WHERE user_id = $1 AND event_id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(
			&ev.ID,
			&ev.UserID,
			&ev.Name,
			&ev.StartDate,
			&ev.EndDate,
			&ev.Description,
			&ev.Category,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so s matches literally in a pattern
// written with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
