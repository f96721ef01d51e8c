package causerpays

import (
	"sort"
	"strconv"
	"time"

	"github.com/guregu/null"

	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// RowBytes is the in-memory payload of one canonical row: an 8 byte
// timestamp, two int64 identifiers, a float64 value and an int64 quality flag.
const RowBytes = 40

// Row is a single canonical record.
type Row struct {
	Datetime       time.Time
	ElementNumber  int64
	VariableNumber int64
	Value          float64
	ValueQuality   int64
}

// Batch is a column-oriented set of canonical rows read from one file.
// All column slices always have the same length.
type Batch struct {
	Source string

	Datetime       []time.Time
	ElementNumber  []int64
	VariableNumber []int64
	Value          []float64
	ValueQuality   []int64

	// SizeHint overrides EstimatedBytes when positive. Used where the logical
	// size of a file is known better than its decoded footprint.
	SizeHint int64
}

// NewBatch returns an empty batch with capacity for n rows.
func NewBatch(source string, n int) *Batch {
	return &Batch{
		Source:         source,
		Datetime:       make([]time.Time, 0, n),
		ElementNumber:  make([]int64, 0, n),
		VariableNumber: make([]int64, 0, n),
		Value:          make([]float64, 0, n),
		ValueQuality:   make([]int64, 0, n),
	}
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Datetime)
}

// EstimatedBytes is the exact column payload of the batch, or SizeHint.
// Slice headers and allocator overhead are not counted.
func (b *Batch) EstimatedBytes() int64 {
	if b == nil {
		return 0
	}
	if b.SizeHint > 0 {
		return b.SizeHint
	}
	return int64(b.Len()) * RowBytes
}

// AppendRow adds one row to the batch.
func (b *Batch) AppendRow(r Row) {
	b.Datetime = append(b.Datetime, r.Datetime)
	b.ElementNumber = append(b.ElementNumber, r.ElementNumber)
	b.VariableNumber = append(b.VariableNumber, r.VariableNumber)
	b.Value = append(b.Value, r.Value)
	b.ValueQuality = append(b.ValueQuality, r.ValueQuality)
}

// Row returns row i.
func (b *Batch) Row(i int) Row {
	return Row{
		Datetime:       b.Datetime[i],
		ElementNumber:  b.ElementNumber[i],
		VariableNumber: b.VariableNumber[i],
		Value:          b.Value[i],
		ValueQuality:   b.ValueQuality[i],
	}
}

// Rows returns a copy of all rows in order.
func (b *Batch) Rows() []Row {
	rows := make([]Row, b.Len())
	for i := range rows {
		rows[i] = b.Row(i)
	}
	return rows
}

// Concat joins batches in order into a new batch.
func Concat(batches []*Batch) *Batch {
	total := 0
	for _, b := range batches {
		total += b.Len()
	}
	out := NewBatch("", total)
	for _, b := range batches {
		if b == nil {
			continue
		}
		out.Datetime = append(out.Datetime, b.Datetime...)
		out.ElementNumber = append(out.ElementNumber, b.ElementNumber...)
		out.VariableNumber = append(out.VariableNumber, b.VariableNumber...)
		out.Value = append(out.Value, b.Value...)
		out.ValueQuality = append(out.ValueQuality, b.ValueQuality...)
	}
	return out
}

// SortByDatetime orders rows by datetime ascending. The sort is stable so
// rows sharing a timestamp keep their relative order.
func (b *Batch) SortByDatetime() {
	n := b.Len()
	if sort.SliceIsSorted(b.Datetime, func(i, j int) bool { return b.Datetime[i].Before(b.Datetime[j]) }) {
		return
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return b.Datetime[idx[i]].Before(b.Datetime[idx[j]])
	})

	dt := make([]time.Time, n)
	el := make([]int64, n)
	vr := make([]int64, n)
	val := make([]float64, n)
	q := make([]int64, n)
	for to, from := range idx {
		dt[to] = b.Datetime[from]
		el[to] = b.ElementNumber[from]
		vr[to] = b.VariableNumber[from]
		val[to] = b.Value[from]
		q[to] = b.ValueQuality[from]
	}
	b.Datetime, b.ElementNumber, b.VariableNumber, b.Value, b.ValueQuality = dt, el, vr, val, q
}

// TimeRange returns the earliest and latest datetime in the batch.
func (b *Batch) TimeRange() (min, max time.Time) {
	for i, t := range b.Datetime {
		if i == 0 || t.Before(min) {
			min = t
		}
		if i == 0 || t.After(max) {
			max = t
		}
	}
	return min, max
}

// Table converts the batch to a reference-style table with canonical column
// names so it can be joined against mapping tables.
func (b *Batch) Table() *registry.Table {
	t := registry.NewTable(CanonicalColumns...)
	for i := 0; i < b.Len(); i++ {
		t.AppendRow([]null.String{
			null.StringFrom(b.Datetime[i].Format("2006/01/02 15:04:05")),
			null.StringFrom(strconv.FormatInt(b.ElementNumber[i], 10)),
			null.StringFrom(strconv.FormatInt(b.VariableNumber[i], 10)),
			null.StringFrom(strconv.FormatFloat(b.Value[i], 'f', -1, 64)),
			null.StringFrom(strconv.FormatInt(b.ValueQuality[i], 10)),
		})
	}
	return t
}
