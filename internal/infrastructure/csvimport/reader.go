// Package csvimport reads catalog import files.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
)

// Header columns. manufacturer_sku may be omitted.
const (
	ColumnDescription     = "description"
	ColumnInternalSKU     = "internal_sku"
	ColumnManufacturerSKU = "manufacturer_sku"
)

// ErrEmpty is returned for a file without a header row.
var ErrEmpty = errors.New("import file is empty")

// ReadRows parses a CSV catalog export. The first record is a header naming
// the columns in any order; blank lines are skipped. Row values are passed
// through untouched, validation happens on import.
func ReadRows(r io.Reader) ([]application.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []application.ImportRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		rows = append(rows, application.ImportRow{
			Description:     field(record, columns, ColumnDescription),
			InternalSKU:     field(record, columns, ColumnInternalSKU),
			ManufacturerSKU: field(record, columns, ColumnManufacturerSKU),
		})
	}
	return rows, nil
}

func indexHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[name] = i
	}
	for _, required := range []string{ColumnDescription, ColumnInternalSKU} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("header is missing column %q", required)
		}
	}
	return columns, nil
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
