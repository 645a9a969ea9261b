package db

import (
	"time"

	"github.com/google/uuid"
)

// Event is a user-defined named date range, such as "semester abroad".
type Event struct {
	ID          uuid.UUID
	UserID      string
	Name        string
	StartDate   time.Time
	EndDate     *time.Time // nullable - open-ended events are still ongoing
	Description *string    // nullable
	Category    *string    // nullable
	CreatedAt   time.Time
}

// Row is one result row of a listening query, in select-list order.
type Row []any
