package core

import (
	"strings"

	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/parse"
)

// Projection is the output of applying a confirmed mapping to a RawTable:
// the candidate set plus the rows that had to be skipped for lacking an email.
type Projection struct {
	Candidates []contact.Candidate
	Skipped    int // rows whose projected email was empty after trimming
}

// Project applies the mapping to every raw row. Rows without a non-empty
// email after normalization are excluded from the candidate set and counted
// as skipped; that is an expected condition, not an error.
func Project(table *parse.RawTable, mapping ColumnMapping) Projection {
	var p Projection

	for _, row := range table.Rows {
		cand := projectRow(row, mapping)
		if cand.Email == "" {
			p.Skipped++
			continue
		}
		p.Candidates = append(p.Candidates, cand)
	}

	return p
}

// projectRow builds one candidate from a raw row. Unbound fields project to
// the empty string.
func projectRow(row map[string]string, mapping ColumnMapping) contact.Candidate {
	lookup := func(field Field) string {
		header, ok := mapping[field]
		if !ok || header == "" {
			return ""
		}
		return row[header]
	}

	return contact.Candidate{
		Email:     contact.NormalizeEmail(lookup(FieldEmail)),
		FirstName: strings.TrimSpace(lookup(FieldFirstName)),
		LastName:  strings.TrimSpace(lookup(FieldLastName)),
		Company:   strings.TrimSpace(lookup(FieldCompany)),
		JobTitle:  strings.TrimSpace(lookup(FieldJobTitle)),
		Phone:     contact.NormalizePhone(lookup(FieldPhone)),
		Country:   strings.TrimSpace(lookup(FieldCountry)),
	}
}
