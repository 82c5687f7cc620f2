package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// record is one parsed data row. Line is the 1-based data-row number,
// header excluded, matching the row numbers in recorded errors.
type record struct {
	Line        int
	SKU         string
	Name        string
	Description string
}

// Recognized header columns. Anything else is ignored at parse time so
// nothing downstream ever sees an open-ended column bag.
const (
	columnSKU         = "sku"
	columnName        = "name"
	columnDescription = "description"
)

// parseRecords reads the whole payload into fixed-shape records. A
// header row is required; an empty payload yields zero records. Any
// CSV syntax error is a job-level failure, not a row-level one.
func parseRecords(raw string) ([]record, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []record{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case columnSKU:
			columns[columnSKU] = i
		case columnName:
			columns[columnName] = i
		case columnDescription:
			columns[columnDescription] = i
		}
	}

	var records []record
	line := 0
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++

		records = append(records, record{
			Line:        line,
			SKU:         field(row, columns, columnSKU),
			Name:        field(row, columns, columnName),
			Description: field(row, columns, columnDescription),
		})
	}

	return records, nil
}

func field(row []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
