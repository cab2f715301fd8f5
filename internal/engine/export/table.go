// Package export reads and writes the tabular files sessions and the merge
// stage exchange. The format is picked from the file extension.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tctsung/google-maps-scraper/internal/model"
)

const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// Table is a header plus string rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// BusinessTable lays out businesses in model.BusinessColumns order.
func BusinessTable(businesses []model.Business) Table {
	t := Table{Header: append([]string(nil), model.BusinessColumns...)}
	for _, b := range businesses {
		t.Rows = append(t.Rows, b.Row())
	}
	return t
}

// Supported reports whether ext names a format Write and Read understand.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ExtCSV, ExtXLSX:
		return true
	}
	return false
}

// Write stores t at path, creating parent directories.
func Write(path string, t Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtCSV:
		return writeCSV(path, t)
	case ExtXLSX:
		return writeXLSX(path, t)
	default:
		return fmt.Errorf("unsupported format: %s", ext)
	}
}

// Read loads the table at path. Short rows are padded to the header width.
func Read(path string) (Table, error) {
	var (
		t   Table
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtCSV:
		t, err = readCSV(path)
	case ExtXLSX:
		t, err = readXLSX(path)
	default:
		return Table{}, fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		return Table{}, err
	}
	t.pad()
	return t, nil
}

func (t *Table) pad() {
	for i, row := range t.Rows {
		switch {
		case len(row) < len(t.Header):
			t.Rows[i] = append(row, make([]string, len(t.Header)-len(row))...)
		case len(row) > len(t.Header):
			t.Rows[i] = row[:len(t.Header)]
		}
	}
}

func fromRecords(records [][]string) Table {
	if len(records) == 0 {
		return Table{}
	}
	return Table{Header: records[0], Rows: records[1:]}
}
