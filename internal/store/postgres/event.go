package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prospectline/crm/internal/store"
)

// EventRegistry reads the events table. The import pipeline never writes it.
type EventRegistry struct {
	pool *pgxpool.Pool
}

// NewEventRegistry creates an EventRegistry backed by pool.
func NewEventRegistry(pool *pgxpool.Pool) *EventRegistry {
	return &EventRegistry{pool: pool}
}

// ListEvents returns all events ordered by name.
func (r *EventRegistry) ListEvents(ctx context.Context) ([]store.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM events ORDER BY name`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var events []store.Event
	for rows.Next() {
		var e store.Event
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, classify(err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return events, nil
}
