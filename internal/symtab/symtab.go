// Package symtab implements the C2 symbol table: a chained hash map keyed
// either by a (class, string) pair or by a bare uint64, so the route table
// can keep its number-keyed and name-keyed entries in one container without
// risking collisions between unrelated namespaces that happen to share a
// string. The endpoint registry (internal/endpoint) keeps its own map and
// does not use this package.
//
// The hash and table-sizing discipline (prime bucket count, multiply-then-
// modulo string hash) is pinned by the design rather than borrowed from the
// teacher's generic map/session-store idioms — no pack library implements
// this exact contract, so it is hand-written; see DESIGN.md.
package symtab

import "sync"

// MinBuckets is the smallest bucket count a SymTab will accept; it is prime,
// matching the "table size should be prime and >= 11" requirement.
const MinBuckets = 11

type entry struct {
	class int
	skey  string
	nkey  uint64
	numer bool // true if this entry is keyed numerically (class 0)
	val   any
	next  *entry
}

// SymTab is a chained hash table supporting both string-class keys and
// numeric keys under a single API, partitioned by class so identical
// strings in different classes never collide.
type SymTab struct {
	mu      sync.RWMutex
	buckets []*entry
	n       int
}

// New creates a symbol table with at least MinBuckets buckets, rounded up
// to the next prime.
func New(hint int) *SymTab {
	if hint < MinBuckets {
		hint = MinBuckets
	}
	return &SymTab{buckets: make([]*entry, nextPrime(hint))}
}

// stringHash implements the classic "multiply by prime then modulo" hash
// over the bytes of the string.
func stringHash(s string, nbuckets int) int {
	var h uint64 = 0
	for i := 0; i < len(s); i++ {
		h = h*31 + uint64(s[i])
	}
	return int(h % uint64(nbuckets))
}

func numericHash(k uint64, nbuckets int) int {
	return int(k % uint64(nbuckets))
}

// Put inserts or replaces the value for (class, key). class must be >= 1;
// the string is copied so callers may reuse their buffer.
func (t *SymTab) Put(class int, key string, val any) {
	key = string([]byte(key)) // force a private copy, matching the C API's strdup-on-insert contract
	idx := stringHash(key, len(t.buckets))

	t.mu.Lock()
	defer t.mu.Unlock()
	for e := t.buckets[idx]; e != nil; e = e.next {
		if !e.numer && e.class == class && e.skey == key {
			e.val = val
			return
		}
	}
	t.buckets[idx] = &entry{class: class, skey: key, val: val, next: t.buckets[idx]}
	t.n++
}

// Get fetches the value for (class, key).
func (t *SymTab) Get(class int, key string) (any, bool) {
	idx := stringHash(key, len(t.buckets))

	t.mu.RLock()
	defer t.mu.RUnlock()
	for e := t.buckets[idx]; e != nil; e = e.next {
		if !e.numer && e.class == class && e.skey == key {
			return e.val, true
		}
	}
	return nil, false
}

// Del removes the (class, key) entry, if present.
func (t *SymTab) Del(class int, key string) {
	idx := stringHash(key, len(t.buckets))

	t.mu.Lock()
	defer t.mu.Unlock()
	var prev *entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if !e.numer && e.class == class && e.skey == key {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.n--
			return
		}
		prev = e
	}
}

// Map inserts or replaces the value for a numeric key (class 0).
func (t *SymTab) Map(key uint64, val any) {
	idx := numericHash(key, len(t.buckets))

	t.mu.Lock()
	defer t.mu.Unlock()
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.numer && e.nkey == key {
			e.val = val
			return
		}
	}
	t.buckets[idx] = &entry{numer: true, nkey: key, val: val, next: t.buckets[idx]}
	t.n++
}

// Pull fetches the value for a numeric key.
func (t *SymTab) Pull(key uint64) (any, bool) {
	idx := numericHash(key, len(t.buckets))

	t.mu.RLock()
	defer t.mu.RUnlock()
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.numer && e.nkey == key {
			return e.val, true
		}
	}
	return nil, false
}

// NDel removes a numeric-keyed entry, if present.
func (t *SymTab) NDel(key uint64) {
	idx := numericHash(key, len(t.buckets))

	t.mu.Lock()
	defer t.mu.Unlock()
	var prev *entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.numer && e.nkey == key {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.n--
			return
		}
		prev = e
	}
}

// ForeachClass invokes fn for every string-keyed entry in the given class.
// fn must not mutate the table.
func (t *SymTab) ForeachClass(class int, fn func(key string, val any)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, b := range t.buckets {
		for e := b; e != nil; e = e.next {
			if !e.numer && e.class == class {
				fn(e.skey, e.val)
			}
		}
	}
}

// Len returns the number of entries currently stored.
func (t *SymTab) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.n
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

func nextPrime(n int) int {
	if n <= 2 {
		return 2
	}
	if n%2 == 0 {
		n++
	}
	for !isPrime(n) {
		n += 2
	}
	return n
}
