package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ListeningRepository runs read-only queries over listening history.
type ListeningRepository struct {
	pool *pgxpool.Pool
}

// Run executes a parameterized query and returns every row. The pooled
// connection is released before Run returns, on success or failure.
func (r *ListeningRepository) Run(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying listening history: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading listening row: %w", err)
		}
		out = append(out, Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listening rows: %w", err)
	}
	return out, nil
}
