package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
)

func sizedBatch(source string, rows int, sizeMB int64) *causerpays.Batch {
	b := causerpays.NewBatch(source, rows)
	for i := 0; i < rows; i++ {
		b.AppendRow(causerpays.Row{ElementNumber: int64(i)})
	}
	b.SizeHint = sizeMB << 20
	return b
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator
	assert.True(t, acc.Empty())
	assert.Zero(t, acc.Size())

	limit := int64(1500) << 20
	acc.Append(sizedBatch("a", 2, 600))
	acc.Append(sizedBatch("b", 3, 600))
	assert.Equal(t, int64(1200)<<20, acc.Size())
	assert.Equal(t, 5, acc.Len())
	assert.False(t, acc.Reached(limit))

	acc.Append(sizedBatch("c", 1, 600))
	assert.True(t, acc.Reached(limit))

	drained := acc.Drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, "a", drained[0].Source)
	assert.True(t, acc.Empty())
	assert.Zero(t, acc.Size())
	assert.Zero(t, acc.Len())
}

func TestAccumulatorIgnoresEmptyBatches(t *testing.T) {
	var acc Accumulator
	acc.Append(causerpays.NewBatch("empty", 0))
	acc.Append(nil)
	assert.True(t, acc.Empty())
}

func TestAccumulatorSizeIsMonotonic(t *testing.T) {
	var acc Accumulator
	var last int64
	for i := 0; i < 10; i++ {
		acc.Append(sizedBatch("x", 1, int64(i)))
		assert.GreaterOrEqual(t, acc.Size(), last)
		last = acc.Size()
	}
}
