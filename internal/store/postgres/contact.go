package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prospectline/crm/internal/contact"
)

// ContactStore persists contacts and their per-event participation flags.
//
// MergeUpdate runs read-merge-write inside a transaction with the contact row
// locked, so two batches naming the same email cannot lose a participation
// flag to a race.
type ContactStore struct {
	pool *pgxpool.Pool
}

// NewContactStore creates a ContactStore backed by pool.
func NewContactStore(pool *pgxpool.Pool) *ContactStore {
	return &ContactStore{pool: pool}
}

// FindByEmail loads a contact and its participation rows by normalized email.
func (s *ContactStore) FindByEmail(ctx context.Context, email string) (*contact.Contact, error) {
	c, err := loadContact(ctx, s.pool, email, false)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// Create inserts a new contact with the candidate's attributes and the
// batch's event participation.
func (s *ContactStore) Create(ctx context.Context, cand contact.Candidate, event contact.EventContext) (*contact.Contact, error) {
	now := time.Now().UTC()
	c := &contact.Contact{
		ID:        uuid.New().String(),
		Email:     cand.Email,
		FirstName: cand.FirstName,
		LastName:  cand.LastName,
		Company:   cand.Company,
		JobTitle:  cand.JobTitle,
		Phone:     cand.Phone,
		Country:   cand.Country,
		CreatedAt: now,
		UpdatedAt: now,
	}
	contact.ApplyParticipation(c, event)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO contacts (id, email, first_name, last_name, company, job_title, phone, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Email, c.FirstName, c.LastName, c.Company, c.JobTitle, c.Phone, c.Country, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}

	if err := upsertParticipation(ctx, tx, c.ID, c.Events[event.EventID]); err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// MergeUpdate merges candidate attributes and the event participation into
// the stored contact against the latest read, under a row lock.
func (s *ContactStore) MergeUpdate(ctx context.Context, email string, cand contact.Candidate, event contact.EventContext) (*contact.Contact, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback(ctx)

	c, err := loadContact(ctx, tx, email, true)
	if err != nil {
		return nil, classify(err)
	}

	contact.Merge(c, cand, event)
	c.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE contacts
		SET first_name = $2, last_name = $3, company = $4, job_title = $5, phone = $6, country = $7, updated_at = $8
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.Company, c.JobTitle, c.Phone, c.Country, c.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}

	if err := upsertParticipation(ctx, tx, c.ID, c.Events[event.EventID]); err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// loadContact reads one contact and all its participation rows. When lock is
// true the contact row is selected FOR UPDATE.
func loadContact(ctx context.Context, db DBTX, email string, lock bool) (*contact.Contact, error) {
	q := `
		SELECT id, email, first_name, last_name, company, job_title, phone, country, created_at, updated_at
		FROM contacts WHERE email = $1`
	if lock {
		q += " FOR UPDATE"
	}

	var c contact.Contact
	err := db.QueryRow(ctx, q, email).Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Company, &c.JobTitle, &c.Phone, &c.Country, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, `
		SELECT event_id, event_name, registered, attended
		FROM contact_events WHERE contact_id = $1`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Events = make(map[string]contact.Participation)
	for rows.Next() {
		var p contact.Participation
		if err := rows.Scan(&p.EventID, &p.EventName, &p.Registered, &p.Attended); err != nil {
			return nil, err
		}
		c.Events[p.EventID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}

// upsertParticipation writes one participation row. Conflicting flags union
// with OR so a flag set by an earlier batch is never cleared.
func upsertParticipation(ctx context.Context, db DBTX, contactID string, p contact.Participation) error {
	if p.EventID == "" {
		return fmt.Errorf("participation missing event id")
	}

	_, err := db.Exec(ctx, `
		INSERT INTO contact_events (contact_id, event_id, event_name, registered, attended)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contact_id, event_id) DO UPDATE SET
			event_name = CASE WHEN EXCLUDED.event_name <> '' THEN EXCLUDED.event_name ELSE contact_events.event_name END,
			registered = contact_events.registered OR EXCLUDED.registered,
			attended   = contact_events.attended OR EXCLUDED.attended`,
		contactID, p.EventID, p.EventName, p.Registered, p.Attended,
	)
	return err
}
