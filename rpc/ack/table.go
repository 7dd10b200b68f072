package ack

import (
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
)

// Table is the pending-request table of one connection. It is not synchronized:
// all calls must happen on the event loop of the owning connection.
type Table struct {
	pending map[common.AckID]*Future
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{pending: make(map[common.AckID]*Future)}
}

// Put registers f under its acknowledgment id. An id that is already outstanding
// is rejected and the existing entry is kept.
func (t *Table) Put(f *Future) error {
	id := f.Ack()
	if _, ok := t.pending[id]; ok {
		return common.NewFrameworkError("put", fmt.Errorf("%w: %s", common.ErrDuplicateAck, id))
	}
	t.pending[id] = f
	return nil
}

// Remove deletes and returns the future for id, or nil if there is none
func (t *Table) Remove(id common.AckID) *Future {
	f, ok := t.pending[id]
	if !ok {
		return nil
	}
	delete(t.pending, id)
	return f
}

// RemoveIf deletes the entry for the id of f only if it still refers to f
func (t *Table) RemoveIf(f *Future) bool {
	id := f.Ack()
	if cur, ok := t.pending[id]; ok && cur == f {
		delete(t.pending, id)
		return true
	}
	return false
}

// Contains reports whether id is outstanding
func (t *Table) Contains(id common.AckID) bool {
	_, ok := t.pending[id]
	return ok
}

// Len returns the number of outstanding requests
func (t *Table) Len() int {
	return len(t.pending)
}

// Drain removes and returns all outstanding futures
func (t *Table) Drain() []*Future {
	futures := make([]*Future, 0, len(t.pending))
	for id, f := range t.pending {
		futures = append(futures, f)
		delete(t.pending, id)
	}
	return futures
}
