// Package parse turns a loosely-structured delimited text export into a
// RawTable: a detected delimiter, a header row, and data rows keyed by header.
// This package has no store or HTTP dependencies and is fully deterministic.
package parse

import "strings"

// Supported delimiters, in detection priority order.
const (
	Comma     = ','
	Semicolon = ';'
	Tab       = '\t'
)

// DetectDelimiter inspects the first non-empty line and picks comma, semicolon
// or tab. It is a best-effort heuristic and never fails: an unrecognized
// structure falls back to comma, which downstream mapping will surface as an
// unmappable one-column table rather than a crash.
func DetectDelimiter(text string) rune {
	line := firstNonEmptyLine(text)
	if line == "" {
		return Comma
	}

	if strings.ContainsRune(line, Tab) {
		return Tab
	}

	hasSemicolon := strings.ContainsRune(line, Semicolon)
	hasComma := strings.ContainsRune(line, Comma)

	if hasSemicolon && !hasComma {
		return Semicolon
	}

	// Both present: whichever splits the line into more fields wins.
	if hasSemicolon && hasComma {
		if len(SplitLine(line, Semicolon)) > len(SplitLine(line, Comma)) {
			return Semicolon
		}
	}

	return Comma
}

// normalizeLineEndings converts CRLF and bare CR line endings to LF.
func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(normalizeLineEndings(text), "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
