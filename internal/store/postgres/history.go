package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prospectline/crm/internal/store"
)

// HistoryStore persists the append-only import audit trail.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Append inserts one finished-batch entry. There is no update path.
func (s *HistoryStore) Append(ctx context.Context, entry store.HistoryEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_history
			(id, imported_at, imported_by, event_name, total_rows, imported, updated, skipped, duplicates, classified, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.ImportedAt, entry.ImportedBy, toPgText(entry.EventName),
		entry.TotalRows, entry.Imported, entry.Updated, entry.Skipped,
		entry.Duplicates, entry.Classified, string(entry.Status),
	)
	return classify(err)
}

// List returns all entries, newest first.
func (s *HistoryStore) List(ctx context.Context) ([]store.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, imported_at, imported_by, event_name, total_rows, imported, updated, skipped, duplicates, classified, status
		FROM import_history ORDER BY imported_at DESC`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []store.HistoryEntry
	for rows.Next() {
		var e store.HistoryEntry
		var eventName pgtype.Text
		var status string
		if err := rows.Scan(
			&e.ID, &e.ImportedAt, &e.ImportedBy, &eventName,
			&e.TotalRows, &e.Imported, &e.Updated, &e.Skipped,
			&e.Duplicates, &e.Classified, &status,
		); err != nil {
			return nil, classify(err)
		}
		e.EventName = eventName.String
		e.Status = store.HistoryStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return entries, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
