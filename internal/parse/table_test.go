package parse

import (
	"errors"
	"reflect"
	"testing"
)

// ----------------------------------------------------------------------------
// ParseTable Tests
// ----------------------------------------------------------------------------

func TestParseTable(t *testing.T) {
	input := []byte("Email,Nombre,Apellidos\n" +
		"ann@acme.com,Ann,Alvarez\n" +
		"\n" +
		"bob@acme.com,Bob,\n")

	table, err := ParseTable(input)
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}

	if table.Delimiter != Comma {
		t.Errorf("Delimiter = %q, want %q", table.Delimiter, Comma)
	}
	wantHeaders := []string{"Email", "Nombre", "Apellidos"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Errorf("Headers = %#v, want %#v", table.Headers, wantHeaders)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}
	if got := table.Rows[0]["Email"]; got != "ann@acme.com" {
		t.Errorf("Rows[0][Email] = %q, want %q", got, "ann@acme.com")
	}
	if got := table.Rows[1]["Apellidos"]; got != "" {
		t.Errorf("Rows[1][Apellidos] = %q, want empty", got)
	}
}

func TestParseTable_SemicolonDelimited(t *testing.T) {
	input := []byte("Email;Nombre\nann@acme.com;Ann\n")

	table, err := ParseTable(input)
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	if table.Delimiter != Semicolon {
		t.Errorf("Delimiter = %q, want %q", table.Delimiter, Semicolon)
	}
	if got := table.Rows[0]["Nombre"]; got != "Ann" {
		t.Errorf("Rows[0][Nombre] = %q, want %q", got, "Ann")
	}
}

func TestParseTable_ShortRowsArePadded(t *testing.T) {
	input := []byte("a,b,c\n1\n")

	table, err := ParseTable(input)
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	row := table.Rows[0]
	if row["a"] != "1" || row["b"] != "" || row["c"] != "" {
		t.Errorf("padded row = %#v", row)
	}
}

func TestParseTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{name: "empty input", input: nil, wantErr: ErrEmptyFile},
		{name: "only blank lines", input: []byte("\n  \n\n"), wantErr: ErrEmptyFile},
		{name: "header but no rows", input: []byte("Email,Nombre\n"), wantErr: ErrNoRows},
		{name: "header and only blank rows", input: []byte("Email,Nombre\n,,\n , \n"), wantErr: ErrNoRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseTable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTable_InvalidUTF8IsSanitized(t *testing.T) {
	input := []byte("Email,Name\nann@acme.com,Ann\xff\n")

	table, err := ParseTable(input)
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	if got := table.Rows[0]["Name"]; got != "Ann�" {
		t.Errorf("Rows[0][Name] = %q, want %q", got, "Ann�")
	}
}

// ----------------------------------------------------------------------------
// NormalizeHeader Tests
// ----------------------------------------------------------------------------

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims and lowercases", input: "  Email  ", want: "email"},
		{name: "strips diacritics", input: "País/Región", want: "pais/region"},
		{name: "spanish company header", input: "Nombre de la Empresa", want: "nombre de la empresa"},
		{name: "telephone accent", input: "Teléfono", want: "telefono"},
		{name: "already normalized", input: "company", want: "company"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeHeader(tt.input); got != tt.want {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
