package parse

import (
	"strings"
	"unicode"
)

// SplitLine splits one line into fields, honoring double-quoted segments.
// Inside quotes a doubled quote ("") is an escaped literal quote and the
// delimiter does not split. Leading/trailing whitespace outside quotes is
// trimmed per field; whitespace inside quotes is preserved. Single pass,
// no backtracking.
func SplitLine(line string, delim rune) []string {
	var (
		fields    []string
		field     strings.Builder
		pendingWS strings.Builder // whitespace seen outside quotes, flushed only if interior
		inQuotes  bool
	)

	flush := func() {
		// Interior whitespace (between non-space content) is kept; leading
		// whitespace before any content and trailing whitespace are dropped.
		if field.Len() > 0 {
			field.WriteString(pendingWS.String())
		}
		pendingWS.Reset()
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes {
				if i+1 < len(runes) && runes[i+1] == '"' {
					field.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				flush()
				inQuotes = true
			}

		case r == delim && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
			pendingWS.Reset()

		case !inQuotes && unicode.IsSpace(r):
			pendingWS.WriteRune(r)

		default:
			flush()
			field.WriteRune(r)
		}
	}

	fields = append(fields, field.String())
	return fields
}

// IsEmptyRow reports whether every field is blank after trimming.
// Rows for which this is true are discarded before projection.
func IsEmptyRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
