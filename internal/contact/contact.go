// Package contact defines the canonical contact model shared by the import
// pipeline and every store implementation.
package contact

import (
	"strings"
	"time"
)

// ParticipationKind is how a contact relates to an event in one import batch.
type ParticipationKind string

const (
	Registered ParticipationKind = "registered"
	Attended   ParticipationKind = "attended"
)

// Valid reports whether k is one of the known participation kinds.
func (k ParticipationKind) Valid() bool {
	return k == Registered || k == Attended
}

// EventContext identifies the event an import batch is attached to. Selected
// once per batch and applied to every candidate in that batch.
type EventContext struct {
	EventID   string            `json:"eventId"`
	EventName string            `json:"eventName"`
	Kind      ParticipationKind `json:"participationKind"`
}

// Participation records a contact's relationship to a single event. Flags are
// monotonic: later imports may set them true but never clear them.
type Participation struct {
	EventID    string `json:"eventId"`
	EventName  string `json:"eventName"`
	Registered bool   `json:"registered"`
	Attended   bool   `json:"attended"`
}

// Contact is a stored contact record.
type Contact struct {
	ID        string                   `json:"id"`
	Email     string                   `json:"email"`
	FirstName string                   `json:"firstName,omitempty"`
	LastName  string                   `json:"lastName,omitempty"`
	Company   string                   `json:"company,omitempty"`
	JobTitle  string                   `json:"jobTitle,omitempty"`
	Phone     string                   `json:"phone,omitempty"`
	Country   string                   `json:"country,omitempty"`
	Events    map[string]Participation `json:"events,omitempty"` // keyed by EventID
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// Candidate is one canonical record projected from an accepted row, before
// reconciliation against the store. Email is normalized; phone is digits only.
type Candidate struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
	JobTitle  string `json:"jobTitle,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country,omitempty"`
}

// NormalizeEmail lowercases and trims an email address. It is the identity
// key for reconciliation; no fuzzy matching beyond this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything but digits. Length validation is left to
// the public registration form, a different subsystem.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
