// Package registry fetches, cleans and persists the NEM reference tables used
// to give causer pays identifiers a meaning: generators and scheduled loads,
// ancillary service providers and the causer pays element/variable mappings.
package registry

import (
	"fmt"
	"strings"

	"github.com/guregu/null"
)

// Table is a small in-memory tabular structure. Cells are nullable strings;
// typing is applied by the cleaners that need it.
type Table struct {
	Columns []string
	Rows    [][]null.String
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Has reports whether every named column exists.
func (t *Table) Has(columns ...string) bool {
	for _, c := range columns {
		if t.Index(c) < 0 {
			return false
		}
	}
	return true
}

// Require returns an error naming the first missing column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if t.Index(c) < 0 {
			return fmt.Errorf("missing column %q (have %s)", c, strings.Join(t.Columns, ", "))
		}
	}
	return nil
}

// AppendRow adds a row, padding or truncating it to the column count.
func (t *Table) AppendRow(row []null.String) {
	out := make([]null.String, len(t.Columns))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

// AppendStrings adds a row of raw strings; empty strings become null.
func (t *Table) AppendStrings(values ...string) {
	row := make([]null.String, len(values))
	for i, v := range values {
		row[i] = Cell(v)
	}
	t.AppendRow(row)
}

// Cell converts a raw string into a nullable cell. Empty means null.
func Cell(v string) null.String {
	return null.NewString(v, v != "")
}

// Get returns the cell at row i of column.
func (t *Table) Get(i int, column string) null.String {
	idx := t.Index(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return null.String{}
	}
	return t.Rows[i][idx]
}

// Column returns a copy of one column.
func (t *Table) Column(column string) []null.String {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	out := make([]null.String, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([][]null.String, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]null.String, len(r))
		copy(row, r)
		out.Rows[i] = row
	}
	return out
}

// Select projects the named columns, in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
	}
	out := NewTable(columns...)
	out.Rows = make([][]null.String, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]null.String, len(idx))
		for j, k := range idx {
			row[j] = r[k]
		}
		out.Rows[i] = row
	}
	return out, nil
}

// DropColumns removes the named columns; unknown names are ignored.
func (t *Table) DropColumns(columns ...string) *Table {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	keep := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// DropEmptyColumns removes columns whose every cell is null, plus columns
// with a blank header (spreadsheet padding).
func (t *Table) DropEmptyColumns() *Table {
	var keep []string
	for i, c := range t.Columns {
		if strings.TrimSpace(c) == "" || strings.HasPrefix(c, "Unnamed:") {
			continue
		}
		for _, r := range t.Rows {
			if r[i].Valid {
				keep = append(keep, c)
				break
			}
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(row []null.String) bool) *Table {
	out := NewTable(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// DistinctBy keeps the first row for each combination of the named columns.
func (t *Table) DistinctBy(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
	}
	seen := make(map[string]bool, len(t.Rows))
	out := NewTable(t.Columns...)
	var key strings.Builder
	for _, r := range t.Rows {
		key.Reset()
		for _, k := range idx {
			if r[k].Valid {
				key.WriteString("v")
				key.WriteString(r[k].String)
			} else {
				key.WriteString("n")
			}
			key.WriteByte(0)
		}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}
