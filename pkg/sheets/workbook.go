package sheets

import (
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Table is the raw contents of one worksheet: a header row and the data
// rows beneath it, padded to the header width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Workbook wraps the xlsx file operators edit by hand. Every call opens
// and closes the file; the workbook is the shared medium, not a handle
// we keep open.
type Workbook struct {
	path string
}

// NewWorkbook constructs a Workbook over the given path. An empty path
// means the workbook integration is not configured.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Configured reports whether a workbook path was provided.
func (w *Workbook) Configured() bool {
	return w.path != ""
}

// ModificationToken returns an opaque token that changes whenever the
// file is modified outside this process.
func (w *Workbook) ModificationToken() (string, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("stat workbook %s: %w", w.path, err)
	}
	return strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
}

// ReadTable reads one worksheet. A missing sheet or an empty sheet
// yields an empty table rather than an error.
func (w *Workbook) ReadTable(sheet string) (Table, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return Table{}, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("lookup sheet %s: %w", sheet, err)
	}
	if idx < 0 {
		return Table{}, nil
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(raw) == 0 {
		return Table{}, nil
	}

	table := Table{Headers: raw[0]}
	for _, row := range raw[1:] {
		padded := make([]string, len(table.Headers))
		copy(padded, row)
		table.Rows = append(table.Rows, padded)
	}
	return table, nil
}

// OverwriteTable destructively replaces one worksheet: all existing
// rows are removed, then the header and data rows are written fresh.
func (w *Workbook) OverwriteTable(sheet string, headers []string, rows [][]string) error {
	f, err := w.openOrCreate()
	if err != nil {
		return err
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("lookup sheet %s: %w", sheet, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	} else {
		existing, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for i := len(existing); i >= 1; i-- {
			if err := f.RemoveRow(sheet, i); err != nil {
				return fmt.Errorf("clear sheet %s row %d: %w", sheet, i, err)
			}
		}
	}

	if err := w.writeRow(f, sheet, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := w.writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}

func (w *Workbook) openOrCreate() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, nil
	}
	if os.IsNotExist(err) {
		return excelize.NewFile(), nil
	}
	return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
}

func (w *Workbook) writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write sheet %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}
