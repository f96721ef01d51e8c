// Package chunk turns a stream of canonical batches into size-bounded,
// sequentially numbered parquet files.
package chunk

import "github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"

// Accumulator is the in-memory working set between flushes. Its size is the
// sum of the batches' EstimatedBytes, so it never decreases until Drain.
type Accumulator struct {
	batches []*causerpays.Batch
	size    int64
	rows    int
}

// Append adds a batch to the working set. Batches without rows are ignored.
func (a *Accumulator) Append(b *causerpays.Batch) {
	if b.Len() == 0 {
		return
	}
	a.batches = append(a.batches, b)
	a.size += b.EstimatedBytes()
	a.rows += b.Len()
}

// Size returns the estimated bytes held.
func (a *Accumulator) Size() int64 {
	return a.size
}

// Len returns the number of rows held.
func (a *Accumulator) Len() int {
	return a.rows
}

// Batches returns the number of batches held.
func (a *Accumulator) Batches() int {
	return len(a.batches)
}

// Empty reports whether there is nothing to flush.
func (a *Accumulator) Empty() bool {
	return len(a.batches) == 0
}

// Reached reports whether the working set must be flushed before the next
// append.
func (a *Accumulator) Reached(limit int64) bool {
	return a.size >= limit
}

// Drain returns the held batches in append order and resets the working set.
func (a *Accumulator) Drain() []*causerpays.Batch {
	out := a.batches
	a.batches = nil
	a.size = 0
	a.rows = 0
	return out
}
