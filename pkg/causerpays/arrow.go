package causerpays

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowSchema is the columnar layout of chunk files. Timestamps are naive
// microseconds so pandas and DuckDB read them back as plain datetimes.
var ArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: ColDatetime, Type: &arrow.TimestampType{Unit: arrow.Microsecond}},
	{Name: ColElementNumber, Type: arrow.PrimitiveTypes.Int64},
	{Name: ColVariableNumber, Type: arrow.PrimitiveTypes.Int64},
	{Name: ColValue, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColValueQuality, Type: arrow.PrimitiveTypes.Int64},
}, nil)

// ArrowRecord builds a record from the batch. The caller releases it.
func (b *Batch) ArrowRecord(mem memory.Allocator) arrow.Record {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rb := array.NewRecordBuilder(mem, ArrowSchema)
	defer rb.Release()

	n := b.Len()
	ts := rb.Field(0).(*array.TimestampBuilder)
	ts.Reserve(n)
	for _, t := range b.Datetime {
		ts.UnsafeAppend(arrow.Timestamp(t.UnixMicro()))
	}
	rb.Field(1).(*array.Int64Builder).AppendValues(b.ElementNumber, nil)
	rb.Field(2).(*array.Int64Builder).AppendValues(b.VariableNumber, nil)
	rb.Field(3).(*array.Float64Builder).AppendValues(b.Value, nil)
	rb.Field(4).(*array.Int64Builder).AppendValues(b.ValueQuality, nil)

	return rb.NewRecord()
}
