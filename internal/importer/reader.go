// internal/importer/reader.go
package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrEmptySheet        = errors.New("spreadsheet has no header row")
)

// Row is one spreadsheet line keyed by its trimmed header.
type Row map[string]string

// DetectFormat picks the decoder from the file extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadRows decodes the first sheet of r. Fully blank lines are dropped.
func ReadRows(r io.Reader, format Format) ([]Row, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(r)
	case FormatCSV:
		return readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheets := f.GetSheetMap()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	indexes := make([]int, 0, len(sheets))
	for idx := range sheets {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	grid := f.GetRows(sheets[indexes[0]])
	if len(grid) == 0 {
		return nil, ErrEmptySheet
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(cells) {
				row[header] = strings.TrimSpace(cells[i])
			} else {
				row[header] = ""
			}
		}
		if !row.blank() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func readCSV(r io.Reader) ([]Row, error) {
	records, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row := make(Row, len(record))
		for k, v := range record {
			// Excel exports prepend a BOM to the first header.
			key := strings.TrimSpace(strings.TrimPrefix(k, "\ufeff"))
			if key == "" {
				continue
			}
			row[key] = strings.TrimSpace(v)
		}
		if !row.blank() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (r Row) blank() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}
