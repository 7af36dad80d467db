package parse

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNoRows is returned when a file parses but contains no data rows.
var ErrNoRows = errors.New("no data rows after header")

// ErrEmptyFile is returned when a file has no non-blank lines at all.
var ErrEmptyFile = errors.New("empty file")

// RawTable is the immutable result of parsing one upload: the detected
// delimiter, the header row as it appeared in the file, and every non-blank
// data row keyed by original header. It lives only for the duration of one
// import batch and is never persisted.
type RawTable struct {
	Delimiter rune
	Headers   []string
	Rows      []map[string]string
}

// ParseTable detects the delimiter, tokenizes every line, and builds a
// RawTable. The first non-blank line is the header row. Blank lines are
// discarded; short rows are padded with empty strings so every row resolves
// every header.
func ParseTable(data []byte) (*RawTable, error) {
	text := normalizeLineEndings(string(sanitizeUTF8(data)))

	lines := strings.Split(text, "\n")
	delim := DetectDelimiter(text)

	var headers []string
	var rows []map[string]string

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := SplitLine(line, delim)
		if IsEmptyRow(fields) {
			continue
		}

		if headers == nil {
			headers = fields
			continue
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(fields) {
				row[h] = fields[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	if headers == nil {
		return nil, ErrEmptyFile
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	return &RawTable{Delimiter: delim, Headers: headers, Rows: rows}, nil
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement char so
// exports saved in legacy encodings cannot poison downstream comparisons.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
