package parse

import (
	"reflect"
	"testing"
)

// ----------------------------------------------------------------------------
// SplitLine Tests
// ----------------------------------------------------------------------------

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		delim rune
		want  []string
	}{
		{
			name:  "plain fields",
			input: "a,b,c",
			delim: Comma,
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "quoted field with delimiter inside",
			input: `"Acme, Inc.",sales`,
			delim: Comma,
			want:  []string{"Acme, Inc.", "sales"},
		},
		{
			name:  "escaped quote inside quoted field",
			input: `"Doe, ""Jr""",x`,
			delim: Comma,
			want:  []string{`Doe, "Jr"`, "x"},
		},
		{
			name:  "whitespace around unquoted fields is trimmed",
			input: "  a  , b ,c ",
			delim: Comma,
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "interior whitespace is preserved",
			input: "John  Smith,x",
			delim: Comma,
			want:  []string{"John  Smith", "x"},
		},
		{
			name:  "whitespace inside quotes is preserved",
			input: `"  padded  ",x`,
			delim: Comma,
			want:  []string{"  padded  ", "x"},
		},
		{
			name:  "empty fields survive",
			input: "a,,c",
			delim: Comma,
			want:  []string{"a", "", "c"},
		},
		{
			name:  "trailing delimiter yields trailing empty field",
			input: "a,b,",
			delim: Comma,
			want:  []string{"a", "b", ""},
		},
		{
			name:  "semicolon delimiter leaves commas alone",
			input: "a,b;c",
			delim: Semicolon,
			want:  []string{"a,b", "c"},
		},
		{
			name:  "unterminated quote consumes rest of line",
			input: `"open,never closed`,
			delim: Comma,
			want:  []string{"open,never closed"},
		},
		{
			name:  "single field",
			input: "alone",
			delim: Comma,
			want:  []string{"alone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLine(tt.input, tt.delim)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLine(%q, %q) = %#v, want %#v", tt.input, tt.delim, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// IsEmptyRow Tests
// ----------------------------------------------------------------------------

func TestIsEmptyRow(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   bool
	}{
		{name: "all blank", fields: []string{"", "  ", "\t"}, want: true},
		{name: "one value", fields: []string{"", "x", ""}, want: false},
		{name: "no fields", fields: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmptyRow(tt.fields); got != tt.want {
				t.Errorf("IsEmptyRow(%#v) = %v, want %v", tt.fields, got, tt.want)
			}
		})
	}
}
