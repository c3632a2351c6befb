package target

import (
	"testing"

	"github.com/relsubset/subsetter/internal/model"
)

func newDesc() *model.TableDescriptor {
	return &model.TableDescriptor{Schema: "public", Name: "orders", PK: []string{"id"}}
}

func TestNew(t *testing.T) {
	tbl := New(newDesc(), false, 100)
	if tbl.RequiredLen() != 0 || tbl.RequestedLen() != 0 {
		t.Error("expected empty queues on a new table")
	}
	if tbl.NRowsDesired != 100 {
		t.Errorf("expected NRowsDesired 100, got %d", tbl.NRowsDesired)
	}
}

func TestNextRow_RequiredBeforeRequested(t *testing.T) {
	tbl := New(newDesc(), false, 10)

	required := model.NewRow()
	required.Set("id", 1)
	requested := model.NewRow()
	requested.Set("id", 2)

	tbl.PushRequestedBack(requested)
	tbl.PushRequired(required)

	row, prioritized, ok := tbl.NextRow()
	if !ok {
		t.Fatal("expected a row")
	}
	if !prioritized {
		t.Error("expected the required row to come out first")
	}
	if v, _ := row.Get("id"); v != 1 {
		t.Errorf("expected required row id=1, got %v", v)
	}

	row, prioritized, ok = tbl.NextRow()
	if !ok {
		t.Fatal("expected a second row")
	}
	if prioritized {
		t.Error("expected the requested row to not be prioritized")
	}
	if v, _ := row.Get("id"); v != 2 {
		t.Errorf("expected requested row id=2, got %v", v)
	}

	_, _, ok = tbl.NextRow()
	if ok {
		t.Error("expected no rows left")
	}
}

func TestPushRequestedFront_TakesPriorityOverBack(t *testing.T) {
	tbl := New(newDesc(), false, 10)

	back := model.NewRow()
	back.Set("id", 1)
	front := model.NewRow()
	front.Set("id", 2)

	tbl.PushRequestedBack(back)
	tbl.PushRequestedFront(front)

	row, _, ok := tbl.NextRow()
	if !ok {
		t.Fatal("expected a row")
	}
	if v, _ := row.Get("id"); v != 2 {
		t.Errorf("expected front-pushed row first, got %v", v)
	}
}

func TestExistsAndLookup(t *testing.T) {
	tbl := New(newDesc(), false, 10)
	pk := model.PKTuple("1")
	row := model.NewRow()
	row.Set("id", 1)

	if tbl.Exists(pk) {
		t.Error("expected pk to not exist yet")
	}

	tbl.Commit(pk, row, 10)
	if !tbl.Exists(pk) {
		t.Error("expected pk to exist after commit with nonzero buffer")
	}
	got, ok := tbl.Lookup(pk)
	if !ok || got != row {
		t.Error("expected Lookup to return the pending row")
	}
}

func TestCommit_ZeroBuffer(t *testing.T) {
	tbl := New(newDesc(), false, 10)
	pk := model.PKTuple("1")
	row := model.NewRow()

	tbl.Commit(pk, row, 0)

	if !tbl.Done[pk] {
		t.Error("expected pk to be marked Done immediately with buffer 0")
	}
	if _, ok := tbl.Pending[pk]; ok {
		t.Error("expected pk to not be in Pending with buffer 0")
	}
	if tbl.NRows != 1 {
		t.Errorf("expected NRows 1, got %d", tbl.NRows)
	}
}

func TestFlush_DrainsPendingIntoDone(t *testing.T) {
	tbl := New(newDesc(), false, 10)
	pk1, pk2 := model.PKTuple("1"), model.PKTuple("2")
	row1, row2 := model.NewRow(), model.NewRow()

	tbl.Commit(pk1, row1, 10)
	tbl.Commit(pk2, row2, 10)

	drained := tbl.Flush()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained rows, got %d", len(drained))
	}
	if len(tbl.Pending) != 0 {
		t.Error("expected Pending to be empty after Flush")
	}
	if !tbl.Done[pk1] || !tbl.Done[pk2] {
		t.Error("expected both pks marked Done after Flush")
	}
}

func TestDropPending(t *testing.T) {
	tbl := New(newDesc(), false, 10)
	pk := model.PKTuple("1")
	tbl.Commit(pk, model.NewRow(), 10)

	tbl.DropPending(pk)

	if _, ok := tbl.Pending[pk]; ok {
		t.Error("expected pk removed from Pending")
	}
	if tbl.Done[pk] {
		t.Error("DropPending must not mark the pk Done")
	}
}

func TestLookup_DoneRowHasNoRetainedData(t *testing.T) {
	tbl := New(newDesc(), false, 10)
	pk := model.PKTuple("1")
	tbl.Commit(pk, model.NewRow(), 0)

	_, ok := tbl.Lookup(pk)
	if ok {
		t.Error("expected Lookup to report not-found for a Done row with no retained data")
	}
}
