package core

import (
	"fmt"
	"strings"

	"github.com/prospectline/crm/internal/parse"
)

// headerPattern matches one normalized header synonym, either exactly or as a
// substring.
type headerPattern struct {
	value    string
	contains bool
}

func exact(v string) headerPattern    { return headerPattern{value: v} }
func contains(v string) headerPattern { return headerPattern{value: v, contains: true} }

func (p headerPattern) match(normalized string) bool {
	if p.contains {
		return strings.Contains(normalized, p.value)
	}
	return normalized == p.value
}

// synonyms is the declarative header-synonym table, checked in order per
// field. Spanish synonyms cover LinkedIn Events exports configured for
// es-* locales, which is where most of our uploads come from.
var synonyms = map[Field][]headerPattern{
	FieldEmail: {
		exact("email"), exact("correo"), contains("e-mail"),
	},
	FieldFirstName: {
		exact("nombre"), exact("first name"), exact("firstname"), exact("first_name"),
	},
	FieldLastName: {
		exact("apellidos"), exact("apellido"), exact("last name"), exact("lastname"), exact("last_name"),
	},
	FieldCompany: {
		exact("nombre de la empresa"), exact("company"), exact("empresa"),
		exact("organizacion"), contains("company"),
	},
	FieldJobTitle: {
		exact("cargo"), exact("title"), exact("job title"), exact("jobtitle"),
		exact("job_title"), exact("puesto"), exact("position"),
	},
	FieldPhone: {
		contains("phone"), contains("tel"), contains("movil"), contains("celular"),
		exact("telefono"),
	},
	FieldCountry: {
		contains("pais"), exact("country"), contains("region"),
	},
}

// AutoMap builds a best-effort ColumnMapping from the raw headers. Fields are
// resolved in canonical order; within a field, synonyms are tried in table
// order and the first matching unclaimed header wins. A header claimed by an
// earlier field is never reassigned. Unmatched fields are simply absent.
func AutoMap(headers []string) ColumnMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = parse.NormalizeHeader(h)
	}

	claimed := make(map[int]bool, len(headers))
	mapping := make(ColumnMapping, len(Fields))

	for _, field := range Fields {
		for _, pattern := range synonyms[field] {
			idx := -1
			for i, norm := range normalized {
				if !claimed[i] && pattern.match(norm) {
					idx = i
					break
				}
			}
			if idx >= 0 {
				claimed[idx] = true
				mapping[field] = headers[idx]
				break
			}
		}
	}

	return mapping
}

// ValidateMapping checks that a mapping can proceed to preview: email must be
// bound to a header that actually exists in the table. All other fields are
// optional.
func ValidateMapping(mapping ColumnMapping, headers []string) error {
	if _, ok := mapping.Email(); !ok {
		return fmt.Errorf("%w: email is not mapped to any column", ErrMappingIncomplete)
	}

	for field, header := range mapping {
		if header == "" {
			continue
		}
		if !containsHeader(headers, header) {
			return fmt.Errorf("%w: %s is mapped to unknown column %q", ErrMappingIncomplete, field, header)
		}
	}

	return nil
}

func containsHeader(headers []string, target string) bool {
	for _, h := range headers {
		if h == target {
			return true
		}
	}
	return false
}
