package causerpays

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// Format is the declared input format of a file.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat maps a user supplied format tag to a Format. "columnar" and
// "pq" are accepted as aliases of parquet.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "parquet", "pq", "columnar":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use csv or parquet", s)
	}
}

// DetectFormat infers the format of a file from its name.
func DetectFormat(path string) Format {
	name := strings.ToLower(filepath.Base(path))
	if strings.Contains(name, ".parquet") || strings.HasSuffix(name, ".pq") {
		return FormatParquet
	}
	return FormatCSV
}

// ReadFile reads one input file into a canonical batch.
func ReadFile(ctx context.Context, path string, format Format) (*Batch, error) {
	switch format {
	case FormatCSV:
		return readCSVFile(path)
	case FormatParquet:
		return readParquetFile(ctx, path)
	default:
		return nil, fmt.Errorf("%s: unsupported format %q", path, format)
	}
}

// mmsPrefixFields is the number of record/report/subtype/version fields that
// lead every I and D row of an MMS file.
const mmsPrefixFields = 4

func readCSVFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	capacity := 0
	if info, err := f.Stat(); err == nil {
		capacity = int(info.Size() / 48)
	}

	br := bufio.NewReaderSize(f, 1<<20)
	head, _ := br.Peek(64)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	batch := NewBatch(path, capacity)
	if registry.IsMMS(head) {
		err = decodeMMS(path, reader, batch)
	} else {
		err = decodeCSV(path, reader, batch)
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// decodeCSV handles plain CSV: a recognised header row, or no header at all.
func decodeCSV(path string, reader *csv.Reader, batch *Batch) error {
	first, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", path, err)
	}

	m := MatchSchema(first)
	switch m.Kind {
	case MatchPartial:
		return &SchemaMismatchError{Path: path, Found: m.Found, Missing: m.Missing, Columns: len(first)}
	case MatchNone:
		if len(first) != len(CanonicalColumns) {
			return &SchemaMismatchError{Path: path, Missing: SourceColumns, Columns: len(first)}
		}
		for i := range m.Positions {
			m.Positions[i] = i
		}
		if err := appendRecord(path, 1, first, m.Positions, batch); err != nil {
			return err
		}
	}

	row := batch.Len()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: reading row %d: %w", path, row+1, err)
		}
		row++
		if err := appendRecord(path, row, record, m.Positions, batch); err != nil {
			return err
		}
	}
}

// decodeMMS handles the AEMO MMS layout. Data rows of the first table whose
// header carries every source column are read; other tables are skipped.
func decodeMMS(path string, reader *csv.Reader, batch *Batch) error {
	var (
		positions []int
		row       int
		done      bool
	)
	for !done {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: reading mms record: %w", path, err)
		}
		if len(record) <= mmsPrefixFields {
			continue
		}

		switch strings.TrimSpace(record[0]) {
		case "I":
			if positions != nil {
				done = true
				break
			}
			m := MatchSchema(record[mmsPrefixFields:])
			switch m.Kind {
			case MatchPartial:
				return &SchemaMismatchError{Path: path, Found: m.Found, Missing: m.Missing}
			case MatchFull:
				positions = make([]int, len(m.Positions))
				for i, p := range m.Positions {
					positions[i] = p + mmsPrefixFields
				}
			}
		case "D":
			if positions == nil {
				continue
			}
			row++
			if err := appendRecord(path, row, record, positions, batch); err != nil {
				return err
			}
		}
	}

	if positions == nil {
		return &SchemaMismatchError{Path: path, Missing: SourceColumns}
	}
	return nil
}

func appendRecord(path string, row int, record []string, positions []int, batch *Batch) error {
	field := func(i int) (string, error) {
		p := positions[i]
		if p >= len(record) {
			return "", &ValueError{Path: path, Row: row, Column: CanonicalColumns[i], Err: fmt.Errorf("missing field")}
		}
		return strings.TrimSpace(record[p]), nil
	}

	var (
		r   Row
		raw string
		err error
	)

	if raw, err = field(0); err != nil {
		return err
	}
	if r.Datetime, err = ParseTimestamp(raw); err != nil {
		return &MalformedTimestampError{Path: path, Row: row, Value: raw, Err: err}
	}

	ints := []*int64{&r.ElementNumber, &r.VariableNumber}
	for k, dst := range ints {
		col := 1 + k
		if raw, err = field(col); err != nil {
			return err
		}
		if *dst, err = ParseInt(raw); err != nil {
			return &ValueError{Path: path, Row: row, Column: CanonicalColumns[col], Value: raw, Err: err}
		}
	}

	if raw, err = field(3); err != nil {
		return err
	}
	if r.Value, err = ParseValue(raw); err != nil {
		return &ValueError{Path: path, Row: row, Column: ColValue, Value: raw, Err: err}
	}

	if raw, err = field(4); err != nil {
		return err
	}
	if r.ValueQuality, err = ParseInt(raw); err != nil {
		return &ValueError{Path: path, Row: row, Column: ColValueQuality, Value: raw, Err: err}
	}

	batch.AppendRow(r)
	return nil
}

// ParseInt parses an identifier or flag. Integral floats such as "330.0"
// are accepted since re-exported files often carry them.
func ParseInt(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not an integer")
	}
	return int64(f), nil
}

// ParseValue parses a measurement. An empty cell is a missing sample and
// becomes NaN.
func ParseValue(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
