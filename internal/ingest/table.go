package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"x2beta/internal/domain"
)

// Table is the column-oriented view of one input file: normalized headers
// plus string cell rows. Missing trailing cells read as empty strings.
type Table struct {
	Headers []string
	Rows    [][]string
	// Encoding is the resolved source encoding ("" for workbooks).
	Encoding string

	index map[string]int
}

var headerJunk = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lowercases a source header and squashes runs of
// non-alphanumerics to single underscores: "Ship To State" -> "ship_to_state".
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = headerJunk.ReplaceAllString(h, "_")
	return strings.Trim(h, "_")
}

// ReadTable parses a CSV or XLSX input by file extension. CSV bytes go
// through encoding detection; malformed CSV lines are skipped. For
// workbooks the first sheet is read.
func ReadTable(name string, data []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return readCSV(data)
	case ".xlsx", ".xls":
		return readWorkbook(data)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedInput, name)
}

func readCSV(data []byte) (*Table, error) {
	text, encoding := DetectEncoding(data)

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Skip malformed lines rather than failing the report.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrUnsupportedInput)
	}
	return newTable(records[0], records[1:], encoding), nil
}

func readWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrUnsupportedInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", domain.ErrUnsupportedInput)
	}
	return newTable(rows[0], rows[1:], ""), nil
}

func newTable(header []string, rows [][]string, encoding string) *Table {
	t := &Table{
		Rows:     rows,
		Encoding: encoding,
		index:    make(map[string]int, len(header)),
	}
	for i, h := range header {
		normalized := NormalizeHeader(h)
		t.Headers = append(t.Headers, normalized)
		if _, dup := t.index[normalized]; !dup {
			t.index[normalized] = i
		}
	}
	return t
}

// HasColumn reports whether the normalized header exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the trimmed value at (row, column-name), empty when the
// column is absent or the row is short.
func (t *Table) Cell(row int, name string) string {
	idx, ok := t.index[name]
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row]
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// First returns the value of the first present candidate column for a row,
// together with whether any candidate column exists in the table at all.
func (t *Table) First(row int, candidates []string) (value string, present bool) {
	for _, c := range candidates {
		if t.HasColumn(c) {
			return t.Cell(row, c), true
		}
	}
	return "", false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
