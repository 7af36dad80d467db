// Package core implements the contact import pipeline: header-to-field
// mapping, row projection, reconciliation against the contact store, and the
// batch orchestrator. It has no HTTP dependencies and is driven entirely
// through the Service and ImportBatch types.
package core

import (
	"github.com/prospectline/crm/internal/contact"
)

// Field is one of the canonical contact attributes the pipeline understands.
type Field string

const (
	FieldEmail     Field = "email"
	FieldFirstName Field = "firstname"
	FieldLastName  Field = "lastname"
	FieldCompany   Field = "company"
	FieldJobTitle  Field = "jobtitle"
	FieldPhone     Field = "phone"
	FieldCountry   Field = "country"
)

// Fields lists every canonical field in mapping priority order. Email first:
// it is the only mandatory field and the identity key.
var Fields = []Field{
	FieldEmail,
	FieldFirstName,
	FieldLastName,
	FieldCompany,
	FieldJobTitle,
	FieldPhone,
	FieldCountry,
}

// ColumnMapping maps canonical fields to source headers. A missing or empty
// entry means the field is unbound and projects to the empty string. Built by
// auto-detection, operator-editable until confirmed.
type ColumnMapping map[Field]string

// Email returns the header bound to the email field, if any.
func (m ColumnMapping) Email() (string, bool) {
	h, ok := m[FieldEmail]
	return h, ok && h != ""
}

// Clone returns an independent copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ImportResult partitions the rows of one batch. Every examined row lands in
// exactly one bucket: imported + updated + skipped + duplicates == total rows.
type ImportResult struct {
	Imported   int `json:"imported"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// Total returns the number of rows accounted for.
func (r ImportResult) Total() int {
	return r.Imported + r.Updated + r.Skipped + r.Duplicates
}

// FailedItem describes one candidate whose store write failed. The batch
// continues past these; they count toward Skipped and downgrade the history
// status to completed_with_errors.
type FailedItem struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// BatchOutcome is the full terminal outcome of processing one batch.
type BatchOutcome struct {
	Result ImportResult       `json:"result"`
	Failed []FailedItem       `json:"failed,omitempty"`
	Event  contact.EventContext `json:"event"`
}
