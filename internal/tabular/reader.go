package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"tendermatch/internal/util"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("no header or data rows")
	ErrFileTooLarge      = errors.New("file exceeds upload limit")
)

// Field is one semantic column the caller expects. Headers are matched
// case-insensitively against Name and Aliases with punctuation stripped, so
// "Monthly_Payment" and "monthly payment " resolve to the same field.
type Field struct {
	Name     string
	Aliases  []string
	Required bool
}

type Schema struct {
	Fields []Field
}

// Row is one data row. Values is keyed by canonical field name and holds raw
// cell text; typing is the normalizer's job.
type Row struct {
	Number int
	Values map[string]string
	Cells  []string
}

type Table struct {
	Headers []string
	Rows    []Row
}

// Get returns the named cell value, trimmed, and whether it was non-empty.
func (r Row) Get(field string) (string, bool) {
	v, ok := r.Values[field]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// ReadFile parses a CSV or spreadsheet at path into rows keyed by the
// schema's field names. maxBytes <= 0 disables the size cap.
func ReadFile(path string, schema Schema, maxBytes int64) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(blob, schema)
	case ".xls", ".xlsx":
		return ParseXLSX(blob, schema)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseCSV reads RFC-4180 CSV content. Row 1 is the header.
func ParseCSV(blob []byte, schema Schema) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(blob))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		records = append(records, record)
	}
	return buildTable(records, schema)
}

// ParseXLSX reads the first worksheet of a spreadsheet. excelize renders
// formula and rich-text cells to their display values.
func ParseXLSX(blob []byte, schema Schema) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return buildTable(rows, schema)
}

func buildTable(records [][]string, schema Schema) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = util.NormalizeSpaces(h)
	}

	columns := mapColumns(headers, schema)

	table := &Table{Headers: headers}
	for i, record := range records[1:] {
		if isEmptyRow(record) {
			continue
		}
		row := Row{Number: i + 2, Values: map[string]string{}, Cells: record}
		for field, col := range columns {
			if col < len(record) {
				row.Values[field] = strings.TrimSpace(record[col])
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return table, nil
}

func mapColumns(headers []string, schema Schema) map[string]int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = util.NormalizeHeader(h)
	}

	out := map[string]int{}
	for _, field := range schema.Fields {
		probes := append([]string{field.Name}, field.Aliases...)
		for _, probe := range probes {
			key := util.NormalizeHeader(probe)
			found := -1
			for i, h := range normalized {
				if h == key {
					found = i
					break
				}
			}
			if found >= 0 {
				out[field.Name] = found
				break
			}
		}
	}
	return out
}

// MissingRequired lists required schema fields that matched no header. Callers
// decide whether that degrades or fails the upload.
func MissingRequired(headers []string, schema Schema) []string {
	columns := mapColumns(headers, schema)
	var missing []string
	for _, field := range schema.Fields {
		if !field.Required {
			continue
		}
		if _, ok := columns[field.Name]; !ok {
			missing = append(missing, field.Name)
		}
	}
	return missing
}

func isEmptyRow(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
