// Package routetable implements component C5: the immutable route-table
// snapshot mapping (mtype, sub_id) to round-robin endpoint groups, plus the
// MEID->endpoint map, with atomic swap and generation-parked old-table
// release. Entry storage is internal/symtab (adapted from the teacher's
// core/concurrency lock-free map pattern, but using the chained hash table
// since this table is built once per update batch and read many times, not
// mutated concurrently).
package routetable

import (
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/symtab"
)

// classRTE and classMEID partition the shared symtab so a table can hold
// both RTE and MEID entries without key collisions (symtab.go's "class").
const (
	classRTE  = 1
	classMEID = 2
)

// Group is one round-robin set of endpoints sharing a routing priority.
type Group struct {
	mu        sync.Mutex
	Endpoints []string
	cursor    int
}

// Next returns the next endpoint in round-robin order, advancing the cursor.
// Concurrent callers may observe repeats; strict fairness is not required
// (spec §4.5).
func (g *Group) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Endpoints) == 0 {
		return ""
	}
	e := g.Endpoints[g.cursor%len(g.Endpoints)]
	g.cursor++
	return e
}

// RTE is one route-table entry: the groups registered for a (mtype, sub_id) key.
type RTE struct {
	Mtype  int32
	SubID  int32
	Groups []*Group
}

// Key encodes (sub_id, mtype) into the table's lookup key. Matches the
// rt_static_test.c-documented ordering: (sub_id << 32) | mtype, applied
// uniformly on every insert and lookup.
func Key(mtype, subID int32) uint64 {
	return (uint64(uint32(subID)) << 32) | uint64(uint32(mtype))
}

// Table is one immutable route-table snapshot. Once installed as active it
// is never mutated; updatert clones into a new Table instead.
type Table struct {
	ID  string
	gen uint64

	entries *symtab.SymTab
	refs    int32
}

// newTable creates an empty table with a fresh generation id.
func newTable(hintEntries int) *Table {
	return &Table{
		ID:      xid.New().String(),
		entries: symtab.New(hintEntries),
		refs:    1,
	}
}

// clone deep-copies t's RTE and MEID entries into a new table, used to
// implement updatert (mutate-a-copy-of-active) semantics.
func (t *Table) clone() *Table {
	nt := newTable(0)
	t.entries.ForeachClass(classRTE, func(_ string, v any) {
		rte := v.(*RTE)
		ngroups := make([]*Group, len(rte.Groups))
		for i, g := range rte.Groups {
			eps := make([]string, len(g.Endpoints))
			copy(eps, g.Endpoints)
			ngroups[i] = &Group{Endpoints: eps}
		}
		nrte := &RTE{Mtype: rte.Mtype, SubID: rte.SubID, Groups: ngroups}
		nt.entries.Map(Key(rte.Mtype, rte.SubID), nrte)
	})
	t.entries.ForeachClass(classMEID, func(meid string, v any) {
		nt.entries.Put(classMEID, meid, v)
	})
	return nt
}

// PutRTE installs (or replaces) the route for (mtype, sub_id).
func (t *Table) PutRTE(mtype, subID int32, groups []*Group) {
	t.entries.Map(Key(mtype, subID), &RTE{Mtype: mtype, SubID: subID, Groups: groups})
}

// DelRTE removes the route for (mtype, sub_id), if present.
func (t *Table) DelRTE(mtype, subID int32) {
	t.entries.NDel(Key(mtype, subID))
}

// GetRTE implements get_rte(sub_id, mtype, allow_fallback): probe the exact
// key, then fall back to sub_id -1 ("any") if allowed and the caller's
// sub_id wasn't already -1 (spec §4.5 step 1-3).
func (t *Table) GetRTE(mtype, subID int32, allowFallback bool) *RTE {
	if v, ok := t.entries.Pull(Key(mtype, subID)); ok {
		return v.(*RTE)
	}
	if allowFallback && subID != -1 {
		if v, ok := t.entries.Pull(Key(mtype, -1)); ok {
			return v.(*RTE)
		}
	}
	return nil
}

// PutMEID maps a MEID string directly to an endpoint.
func (t *Table) PutMEID(meid, endpoint string) {
	t.entries.Put(classMEID, meid, endpoint)
}

// DelMEID removes a MEID mapping.
func (t *Table) DelMEID(meid string) {
	t.entries.Del(classMEID, meid)
}

// GetMEID resolves a MEID string to its endpoint, if mapped.
func (t *Table) GetMEID(meid string) (string, bool) {
	v, ok := t.entries.Get(classMEID, meid)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// addRef / release implement the generation-parked refcounted lifetime: the
// table that was active just before a swap is kept alive until whatever
// holds a reference to it (an in-flight lookup) releases it.
func (t *Table) addRef()  { atomic.AddInt32(&t.refs, 1) }
func (t *Table) release() int32 { return atomic.AddInt32(&t.refs, -1) }

// Active is the atomically-swappable holder of the current route table,
// component C5's top-level handle. Builders construct a new Table off to
// the side (newrt/updatert) and Swap it in once validated.
type Active struct {
	ptr atomic.Pointer[Table]

	swapCount uint64
}

// NewActive creates an Active holder seeded with an empty table.
func NewActive() *Active {
	a := &Active{}
	a.ptr.Store(newTable(symtab.MinBuckets))
	return a
}

// Current returns the active table, pinning it with a reference the caller
// must Release when done (so a concurrent Swap doesn't free it out from
// under an in-flight lookup).
func (a *Active) Current() *Table {
	t := a.ptr.Load()
	t.addRef()
	return t
}

// Release drops a reference obtained from Current.
func (a *Active) Release(t *Table) {
	t.release()
}

// Swap installs next as the active table, parking the previous table one
// generation (it is freed once its refcount reaches zero, i.e. once every
// in-flight Current() caller has Released it).
func (a *Active) Swap(next *Table) *Table {
	prev := a.ptr.Swap(next)
	atomic.AddUint64(&a.swapCount, 1)
	if prev != nil {
		prev.release() // drop the initial self-reference; frees once refs hit 0
	}
	return prev
}

// SwapCount returns the number of times Swap has installed a new table.
func (a *Active) SwapCount() uint64 { return atomic.LoadUint64(&a.swapCount) }

// NewBuilder starts a fresh empty table build (the newrt verb).
func NewBuilder() *Table { return newTable(symtab.MinBuckets) }

// CloneBuilder starts a build by cloning t (the updatert verb).
func CloneBuilder(t *Table) *Table { return t.clone() }
