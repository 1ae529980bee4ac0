// Package batch reads specimen parameter tables. The first row names
// the columns; every following row becomes one raw record for
// normalization. CSV and Excel workbooks are supported because both
// circulate between the test lab and the analysts.
package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Read loads every record from a parameter table, dispatching on the
// file extension. Records keep raw cell text; interpretation happens in
// normalization.
func Read(path string) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx", ".xlsm":
		return readWorkbook(path)
	}
	return nil, fmt.Errorf("batch: unsupported parameter table %q (want .csv, .xlsx or .xlsm)", path)
}

func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parameter table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter table: %w", err)
	}
	return tableToRecords(rows), nil
}

func readWorkbook(path string) ([]map[string]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("batch: workbook %s has no sheets", path)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return tableToRecords(rows), nil
}

// tableToRecords keys each data row by the header row. Short rows are
// padded, long rows truncated, and rows with no content at all are
// dropped.
func tableToRecords(rows [][]string) []map[string]string {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	var records []map[string]string
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		empty := true
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell != "" {
				empty = false
			}
			rec[name] = cell
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records
}
