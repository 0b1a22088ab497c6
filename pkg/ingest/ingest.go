// Package ingest reads correction and credential sheets into records.
//
// The first row is the header. Header names and cell values are trimmed,
// rows with no non-blank cell are skipped, and short rows are padded with
// empty values. Supported formats are .xlsx/.xlsm (first worksheet) and .csv.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/Sternrassler/correction-sender/pkg/record"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no reader.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoHeader is returned when a sheet has no header row.
	ErrNoHeader = errors.New("missing header row")
)

// ReadAll reads every data row of the file at path.
func ReadAll(path string) ([]record.Record, error) {
	var (
		rows [][]string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	records, err := FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("rows", len(records)).
		Msg("Sheet loaded")

	return records, nil
}

// ReadCSV reads records from CSV data.
func ReadCSV(r io.Reader) ([]record.Record, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return nil, err
	}
	return FromRows(rows)
}

// FromRows converts raw rows, header first, into records.
func FromRows(rows [][]string) ([]record.Record, error) {
	headerIdx := -1
	for i, row := range rows {
		if !blank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[headerIdx]))
	for i, name := range rows[headerIdx] {
		header[i] = strings.TrimSpace(name)
	}

	records := make([]record.Record, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if blank(row) {
			continue
		}
		records = append(records, record.New(header, row))
	}
	return records, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// ReadCredentials loads the key sheet at path into a credential table.
func ReadCredentials(path string) (*record.CredentialTable, error) {
	rows, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	return record.NewCredentialTable(rows), nil
}
