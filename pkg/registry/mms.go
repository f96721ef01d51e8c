package registry

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// MMS files (the AEMO "MMS Data Model" CSV layout) interleave comment rows
// ("C"), header rows ("I") and data rows ("D"). The first four fields of "I"
// and "D" rows are record type, report type, report subtype and version.
const mmsPrefixFields = 4

// IsMMS reports whether data looks like an MMS formatted CSV.
func IsMMS(data []byte) bool {
	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	line = bytes.TrimPrefix(line, []byte("\ufeff"))
	return bytes.HasPrefix(line, []byte("C,")) || bytes.HasPrefix(line, []byte("I,"))
}

// ParseMMS extracts one table from an MMS formatted CSV. When table is empty
// the first table that has a header row is returned. Table names match
// either the report subtype or "TYPE_SUBTYPE", case-insensitively.
func ParseMMS(r io.Reader, table string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	want := strings.ToUpper(table)
	var out *Table
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading mms record: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		switch strings.TrimSpace(record[0]) {
		case "I":
			if len(record) <= mmsPrefixFields {
				return nil, fmt.Errorf("mms header row too short: %d fields", len(record))
			}
			if out != nil {
				// A second table begins; the one we wanted is complete.
				return out, nil
			}
			if want == "" || mmsName(record) == want || strings.ToUpper(record[2]) == want {
				out = NewTable(record[mmsPrefixFields:]...)
			}
		case "D":
			if out == nil || len(record) < mmsPrefixFields {
				continue
			}
			out.AppendStrings(record[mmsPrefixFields:]...)
		}
	}

	if out == nil {
		if table == "" {
			return nil, fmt.Errorf("no mms table header found")
		}
		return nil, fmt.Errorf("mms table %s not found", table)
	}
	return out, nil
}

func mmsName(record []string) string {
	return strings.ToUpper(record[1] + "_" + record[2])
}
