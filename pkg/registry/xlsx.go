package registry

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadSheet loads one worksheet of a workbook. The first row with any
// non-blank cell is the header; blank header cells are named "Unnamed: N"
// so DropEmptyColumns can recognise them.
func ReadSheet(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook %s has no sheet %q (have %s)",
			path, sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	start := -1
	for i, r := range rows {
		if !blankRow(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	width := 0
	for _, r := range rows[start:] {
		if len(r) > width {
			width = len(r)
		}
	}

	header := make([]string, width)
	for i := range header {
		if i < len(rows[start]) {
			header[i] = strings.TrimSpace(rows[start][i])
		}
		if header[i] == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	t := NewTable(header...)
	for _, r := range rows[start+1:] {
		if blankRow(r) {
			continue
		}
		values := make([]string, len(r))
		for i, v := range r {
			values[i] = strings.TrimSpace(v)
		}
		t.AppendStrings(values...)
	}
	return t, nil
}

func blankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WorkbookWriter writes tables to worksheets of a new workbook.
type WorkbookWriter struct {
	filePath string
	file     *excelize.File
	sheets   int
}

// NewWorkbookWriter starts a workbook that will be saved to filePath.
func NewWorkbookWriter(filePath string) *WorkbookWriter {
	return &WorkbookWriter{
		filePath: filePath,
		file:     excelize.NewFile(),
	}
}

// File exposes the underlying workbook for callers that add charts.
func (w *WorkbookWriter) File() *excelize.File {
	return w.file
}

// AddSheet adds an empty sheet. The workbook's default sheet is reused for
// the first one.
func (w *WorkbookWriter) AddSheet(sheetName string) error {
	if w.sheets == 0 {
		if err := w.file.SetSheetName("Sheet1", sheetName); err != nil {
			return fmt.Errorf("renaming default sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(sheetName); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheetName, err)
	}
	w.sheets++
	return nil
}

// WriteTable writes t to a sheet named sheetName, header in row 1.
func (w *WorkbookWriter) WriteTable(sheetName string, t *Table) error {
	if err := w.AddSheet(sheetName); err != nil {
		return err
	}

	sw, err := w.file.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for i, v := range row {
			if v.Valid {
				values[i] = v.String
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("writing row %d: %w", r+1, err)
		}
	}
	return sw.Flush()
}

// Save writes the workbook to disk.
func (w *WorkbookWriter) Save() error {
	if err := w.file.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("error saving workbook: %w", err)
	}
	return nil
}

// Close releases the workbook.
func (w *WorkbookWriter) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
