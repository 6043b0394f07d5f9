package ingest

import (
	"fmt"
	"strings"

	"github.com/formulab/regula/pkg/regula/internalerr"
)

// Table holds parsed CSV content: ordered header names and one map per
// data row keyed by header name. LineErrors collects recoverable
// per-line parse failures; those lines are skipped, not fatal.
type Table struct {
	Headers    []string
	Rows       []map[string]string
	LineErrors []string
}

// Tokenizer parses comma-delimited text with optional double-quoted
// fields. Inside quotes, commas are literal and a doubled quote is an
// escaped quote character.
type Tokenizer struct{}

// NewTokenizer creates a CSV tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Parse tokenizes raw CSV text into a Table. Blank lines are skipped.
// A malformed line is recorded in LineErrors and skipped; parsing
// continues with the next line. Zero non-blank lines, or a header line
// with zero columns, is a fatal error.
func (t *Tokenizer) Parse(raw string) (*Table, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	tab := &Table{}
	headerParsed := false

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := parseLine(line)
		if err != nil {
			if !headerParsed {
				return tab, fmt.Errorf("%w: header line %d: %v", internalerr.ErrInvalidInput, i+1, err)
			}
			tab.LineErrors = append(tab.LineErrors, fmt.Sprintf("line %d: %v", i+1, err))
			continue
		}

		if !headerParsed {
			tab.Headers = headerNames(fields)
			if len(tab.Headers) == 0 {
				return tab, fmt.Errorf("%w: header line produced zero columns", internalerr.ErrInvalidInput)
			}
			headerParsed = true
			continue
		}

		tab.Rows = append(tab.Rows, t.rowMap(tab, fields))
	}

	if !headerParsed {
		return tab, internalerr.ErrEmptySource
	}
	return tab, nil
}

// rowMap pairs fields with headers. Missing trailing fields default to
// the empty string; fields beyond the known headers get a synthesized
// header name, which is appended to the table's header list.
func (t *Tokenizer) rowMap(tab *Table, fields []string) map[string]string {
	for len(tab.Headers) < len(fields) {
		tab.Headers = append(tab.Headers, fmt.Sprintf("column_%d", len(tab.Headers)+1))
	}

	row := make(map[string]string, len(tab.Headers))
	for i, h := range tab.Headers {
		if i < len(fields) {
			row[h] = fields[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

// headerNames trims header cells and synthesizes names for empty ones.
func headerNames(fields []string) []string {
	names := make([]string, 0, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(f)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		names = append(names, name)
	}
	return names
}

// parseLine splits one CSV line into fields. Quoted fields may contain
// commas; a doubled quote inside a quoted field is a literal quote. An
// unterminated quote is an error.
func parseLine(line string) ([]string, error) {
	var fields []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes:
			if r == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					current.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				current.WriteRune(r)
			}
		case r == '"' && current.Len() == 0:
			inQuotes = true
		case r == ',':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted field")
	}

	fields = append(fields, current.String())
	return fields, nil
}
