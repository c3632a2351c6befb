// Package target holds per-table target-side state: the required and
// requested row queues, the pending write buffer, and the done set that
// guards against duplicate insertion.
package target

import (
	"container/list"

	"github.com/relsubset/subsetter/internal/model"
)

// entry pairs a source row with whether it was admitted via a prioritized
// path (must-insert) or an opportunistic one (best-effort).
type entry struct {
	row         *model.Row
	prioritized bool
}

// Table is the mutable per-target-table state the scheduler and admission
// engine read and mutate every iteration.
type Table struct {
	Desc *model.TableDescriptor

	required  *list.List // FIFO of entry, all prioritized=true
	requested *list.List // deque of entry, all prioritized=false

	Pending map[model.PKTuple]*model.Row
	Done    map[model.PKTuple]bool

	FetchAll     bool
	NRows        int64
	NRowsDesired int64
}

// New creates an empty Table for the given descriptor.
func New(desc *model.TableDescriptor, fetchAll bool, nRowsDesired int64) *Table {
	return &Table{
		Desc:         desc,
		required:     list.New(),
		requested:    list.New(),
		Pending:      make(map[model.PKTuple]*model.Row),
		Done:         make(map[model.PKTuple]bool),
		FetchAll:     fetchAll,
		NRowsDesired: nRowsDesired,
	}
}

// RequiredLen reports the number of rows still queued in Required.
func (t *Table) RequiredLen() int { return t.required.Len() }

// RequestedLen reports the number of rows still queued in Requested.
func (t *Table) RequestedLen() int { return t.requested.Len() }

// PushRequired appends a must-insert row to the back of Required.
func (t *Table) PushRequired(row *model.Row) {
	t.required.PushBack(entry{row: row, prioritized: true})
}

// PushRequestedFront prepends an opportunistic row to Requested, per
// the "first fresh candidate goes to the front" rule.
func (t *Table) PushRequestedFront(row *model.Row) {
	t.requested.PushFront(entry{row: row, prioritized: false})
}

// PushRequestedBack appends an opportunistic row to the back of Requested.
func (t *Table) PushRequestedBack(row *model.Row) {
	t.requested.PushBack(entry{row: row, prioritized: false})
}

// NextRow implements the consumer-side draining order: Required first,
// then Requested, then the caller's sampler fallback. ok is false only
// when both queues are empty and the caller must consult the sampler.
func (t *Table) NextRow() (row *model.Row, prioritized bool, ok bool) {
	if el := t.required.Front(); el != nil {
		e := t.required.Remove(el).(entry)
		return e.row, e.prioritized, true
	}
	if el := t.requested.Front(); el != nil {
		e := t.requested.Remove(el).(entry)
		return e.row, e.prioritized, true
	}
	return nil, false, false
}

// Exists reports whether pk is already pending or done, the idempotence
// check admission uses before doing any work.
func (t *Table) Exists(pk model.PKTuple) bool {
	if _, ok := t.Pending[pk]; ok {
		return true
	}
	return t.Done[pk]
}

// Lookup returns the row for pk if it is pending or already committed.
func (t *Table) Lookup(pk model.PKTuple) (*model.Row, bool) {
	if row, ok := t.Pending[pk]; ok {
		return row, true
	}
	if t.Done[pk] {
		// Row data for already-flushed rows isn't retained; callers that
		// need the row contents must look it up from the target database.
		return nil, false
	}
	return nil, false
}

// Commit records pk as admitted. When buffer is 0, row is marked Done
// immediately (the caller is expected to have inserted it synchronously);
// otherwise it's added to Pending for batch flush.
func (t *Table) Commit(pk model.PKTuple, row *model.Row, buffer int) {
	t.NRows++
	if buffer == 0 {
		t.Done[pk] = true
		return
	}
	t.Pending[pk] = row
}

// Flush drains Pending into Done, returning the rows that were pending so
// the caller can batch-insert them.
func (t *Table) Flush() map[model.PKTuple]*model.Row {
	drained := t.Pending
	t.Pending = make(map[model.PKTuple]*model.Row)
	for pk := range drained {
		t.Done[pk] = true
	}
	return drained
}

// DropPending removes a single pk from Pending without marking it Done.
func (t *Table) DropPending(pk model.PKTuple) {
	delete(t.Pending, pk)
}
