/*
palloc.go thread record allocator

The arena is a fixed table of thread records, one per possible thread,
with a bitset marking the slots in use. A record keeps its slot for its
whole life, so the slot index is a stable handle for the intrusive queues.
*/

package threads

import (
	"github.com/bits-and-blooms/bitset"
)

// ThreadMagic is the value of a live record's magic member. Used to detect
// stack overflow or use of a freed record.
const ThreadMagic uint32 = 0xcd6abf4b

type arena struct {
	slots []Thread
	used  *bitset.BitSet
}

func newArena(n int) *arena {
	return &arena{
		slots: make([]Thread, n),
		used:  bitset.New(uint(n)),
	}
}

// get allocates a zeroed record, ErrNoMem when every slot is taken
func (a *arena) get() (*Thread, error) {
	i, ok := a.used.NextClear(0)
	if !ok {
		return nil, ErrNoMem
	}
	a.used.Set(i)

	t := &a.slots[i]
	*t = Thread{slot: Qid16(i)}
	for l := range t.links {
		t.links[l] = qentry{qnext: EMPTY, qprev: EMPTY}
	}
	return t, OK
}

// free returns the record of a dead thread to the arena
func (a *arena) free(t *Thread) {
	t.magic = 0
	t.status = ThreadFree
	a.used.Clear(uint(t.slot))
}

// count returns the number of allocated records
func (a *arena) count() int {
	return int(a.used.Count())
}

// each calls fn on every allocated record in slot order
func (a *arena) each(fn func(t *Thread) bool) {
	for i, ok := a.used.NextSet(0); ok; i, ok = a.used.NextSet(i + 1) {
		if !fn(&a.slots[i]) {
			return
		}
	}
}
