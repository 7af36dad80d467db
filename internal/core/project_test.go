package core

import (
	"testing"

	"github.com/prospectline/crm/internal/parse"
)

// ----------------------------------------------------------------------------
// Project Tests
// ----------------------------------------------------------------------------

func testTable(rows ...map[string]string) *parse.RawTable {
	return &parse.RawTable{
		Delimiter: parse.Comma,
		Headers:   []string{"Email", "Nombre", "Telefono"},
		Rows:      rows,
	}
}

func testMapping() ColumnMapping {
	return ColumnMapping{
		FieldEmail:     "Email",
		FieldFirstName: "Nombre",
		FieldPhone:     "Telefono",
	}
}

func TestProject_NormalizesValues(t *testing.T) {
	table := testTable(map[string]string{
		"Email":    "  Ann@Acme.COM ",
		"Nombre":   "  Ann ",
		"Telefono": "+34 600-111-222",
	})

	p := Project(table, testMapping())

	if len(p.Candidates) != 1 {
		t.Fatalf("len(Candidates) = %d, want 1", len(p.Candidates))
	}
	c := p.Candidates[0]
	if c.Email != "ann@acme.com" {
		t.Errorf("Email = %q, want %q", c.Email, "ann@acme.com")
	}
	if c.FirstName != "Ann" {
		t.Errorf("FirstName = %q, want %q", c.FirstName, "Ann")
	}
	if c.Phone != "34600111222" {
		t.Errorf("Phone = %q, want %q", c.Phone, "34600111222")
	}
}

func TestProject_SkipsRowsWithoutEmail(t *testing.T) {
	table := testTable(
		map[string]string{"Email": "ann@acme.com", "Nombre": "Ann"},
		map[string]string{"Email": "", "Nombre": "Ghost"},
		map[string]string{"Email": "   ", "Nombre": "Spacer"},
		map[string]string{"Email": "bob@acme.com", "Nombre": "Bob"},
	)

	p := Project(table, testMapping())

	if len(p.Candidates) != 2 {
		t.Errorf("len(Candidates) = %d, want 2", len(p.Candidates))
	}
	if p.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", p.Skipped)
	}
}

func TestProject_UnboundFieldsProjectEmpty(t *testing.T) {
	table := testTable(map[string]string{
		"Email":    "ann@acme.com",
		"Nombre":   "Ann",
		"Telefono": "600111222",
	})
	mapping := ColumnMapping{FieldEmail: "Email"}

	p := Project(table, mapping)

	c := p.Candidates[0]
	if c.FirstName != "" || c.Phone != "" {
		t.Errorf("unbound fields projected: %+v", c)
	}
}
