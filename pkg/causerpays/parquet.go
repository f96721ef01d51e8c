package causerpays

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

const parquetReadBatch = 64 * 1024

// readParquetFile reads a columnar file. Columns are taken by canonical or
// source name when all five are present, otherwise the first five columns
// are used positionally.
func readParquetFile(ctx context.Context, path string) (*Batch, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: parquetReadBatch}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow file reader for %s: %w", path, err)
	}

	schema, err := fr.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to get arrow schema for %s: %w", path, err)
	}
	positions, err := parquetPositions(path, schema)
	if err != nil {
		return nil, err
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create record reader for %s: %w", path, err)
	}
	defer rr.Release()

	batch := NewBatch(path, int(pf.NumRows()))
	row := 0
	for {
		rec, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%s: arrow read error: %w", path, err)
		}
		if rec == nil {
			break
		}
		if err := appendArrowRecord(path, row, rec, positions, batch); err != nil {
			return nil, err
		}
		row += int(rec.NumRows())
	}
	return batch, nil
}

// parquetPositions picks the top-level columns holding the canonical fields.
func parquetPositions(path string, schema *arrow.Schema) ([]int, error) {
	fields := schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	byName := func(want []string) []int {
		index := make(map[string]int, len(names))
		for i, n := range names {
			index[strings.ToLower(n)] = i
		}
		out := make([]int, len(want))
		for i, w := range want {
			p, ok := index[strings.ToLower(w)]
			if !ok {
				return nil
			}
			out[i] = p
		}
		return out
	}

	if p := byName(CanonicalColumns); p != nil {
		return p, nil
	}
	if p := byName(SourceColumns); p != nil {
		return p, nil
	}
	if len(fields) < len(CanonicalColumns) {
		return nil, &SchemaMismatchError{Path: path, Missing: SourceColumns, Columns: len(fields)}
	}
	return []int{0, 1, 2, 3, 4}, nil
}

// appendArrowRecord converts one record; positions[i] is the record column
// holding CanonicalColumns[i].
func appendArrowRecord(path string, offset int, rec arrow.Record, positions []int, batch *Batch) error {
	n := int(rec.NumRows())
	cols := make([]arrow.Array, len(CanonicalColumns))
	for i := range cols {
		cols[i] = rec.Column(positions[i])
	}

	for i := 0; i < n; i++ {
		row := offset + i + 1
		var r Row

		ts, err := arrowTime(cols[0], i)
		if err != nil {
			return &MalformedTimestampError{Path: path, Row: row, Value: arrowString(cols[0], i), Err: err}
		}
		r.Datetime = ts

		if r.ElementNumber, err = arrowInt(cols[1], i); err != nil {
			return &ValueError{Path: path, Row: row, Column: ColElementNumber, Value: arrowString(cols[1], i), Err: err}
		}
		if r.VariableNumber, err = arrowInt(cols[2], i); err != nil {
			return &ValueError{Path: path, Row: row, Column: ColVariableNumber, Value: arrowString(cols[2], i), Err: err}
		}
		if r.Value, err = arrowFloat(cols[3], i); err != nil {
			return &ValueError{Path: path, Row: row, Column: ColValue, Value: arrowString(cols[3], i), Err: err}
		}
		if r.ValueQuality, err = arrowInt(cols[4], i); err != nil {
			return &ValueError{Path: path, Row: row, Column: ColValueQuality, Value: arrowString(cols[4], i), Err: err}
		}
		batch.AppendRow(r)
	}
	return nil
}

var errNull = errors.New("null value")

func arrowTime(col arrow.Array, i int) (t time.Time, err error) {
	if col.IsNull(i) {
		return t, errNull
	}
	switch c := col.(type) {
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(i).ToTime(unit).UTC(), nil
	case *array.Date64:
		return c.Value(i).ToTime().UTC(), nil
	case *array.Date32:
		return c.Value(i).ToTime().UTC(), nil
	case *array.String:
		return ParseTimestamp(c.Value(i))
	case *array.LargeString:
		return ParseTimestamp(c.Value(i))
	default:
		return t, fmt.Errorf("unsupported timestamp type %s", col.DataType())
	}
}

func arrowInt(col arrow.Array, i int) (int64, error) {
	if col.IsNull(i) {
		return 0, errNull
	}
	switch c := col.(type) {
	case *array.Int8:
		return int64(c.Value(i)), nil
	case *array.Int16:
		return int64(c.Value(i)), nil
	case *array.Int32:
		return int64(c.Value(i)), nil
	case *array.Int64:
		return c.Value(i), nil
	case *array.Uint8:
		return int64(c.Value(i)), nil
	case *array.Uint16:
		return int64(c.Value(i)), nil
	case *array.Uint32:
		return int64(c.Value(i)), nil
	case *array.Uint64:
		return int64(c.Value(i)), nil
	case *array.Float32, *array.Float64:
		f, _ := arrowFloat(col, i)
		if f != math.Trunc(f) || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(f), nil
	case *array.String:
		return ParseInt(strings.TrimSpace(c.Value(i)))
	case *array.LargeString:
		return ParseInt(strings.TrimSpace(c.Value(i)))
	default:
		return 0, fmt.Errorf("unsupported integer type %s", col.DataType())
	}
}

// arrowFloat reads a measurement; nulls are missing samples and become NaN.
func arrowFloat(col arrow.Array, i int) (float64, error) {
	if col.IsNull(i) {
		return math.NaN(), nil
	}
	switch c := col.(type) {
	case *array.Float32:
		return float64(c.Value(i)), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.String:
		return ParseValue(strings.TrimSpace(c.Value(i)))
	case *array.LargeString:
		return ParseValue(strings.TrimSpace(c.Value(i)))
	default:
		n, err := arrowInt(col, i)
		return float64(n), err
	}
}

func arrowString(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return ""
	}
	return col.ValueStr(i)
}
