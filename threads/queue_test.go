package threads

import (
	"testing"
)

// newTestThreads allocates n records named "a", "b", ... with the given
// priorities
func newTestThreads(t *testing.T, a *arena, prios ...Pri16) []*Thread {
	t.Helper()
	ts := make([]*Thread, len(prios))
	for i, p := range prios {
		th, err := a.get()
		if err != nil {
			t.Fatal(err)
		}
		th.name = string(rune('a' + i))
		th.priority = p
		th.magic = ThreadMagic
		ts[i] = th
	}
	return ts
}

func names(q *queue) string {
	s := ""
	for th := q.First(); th != nil; th = q.Next(th) {
		s += th.name
	}
	return s
}

func TestQueueInsertByPriority(t *testing.T) {
	a := newArena(8)
	ts := newTestThreads(t, a, 5, 9, 5, 1, 9)
	q := newQueue(a, elemLink)
	for _, th := range ts {
		q.insert(th, higherPriority)
	}

	// equal priorities keep their insertion order
	if got := names(&q); got != "beacd" {
		t.Errorf("queue %q, want beacd", got)
	}
	if q.Len() != 5 || q.First() != ts[1] || q.Last() != ts[3] {
		t.Errorf("Len %d, First %s, Last %s", q.Len(), q.First().name, q.Last().name)
	}
}

func TestQueueGetItemAndGetFirst(t *testing.T) {
	a := newArena(4)
	ts := newTestThreads(t, a, 1, 2, 3)
	q := newQueue(a, elemLink)
	for _, th := range ts {
		q.enqueue(th)
	}

	q.getItem(ts[1])
	if got := names(&q); got != "ac" {
		t.Errorf("after removing b: %q", got)
	}
	if got := q.getFirst(); got != ts[0] {
		t.Errorf("getFirst = %v", got)
	}
	if got := q.getFirst(); got != ts[2] {
		t.Errorf("getFirst = %v", got)
	}
	if !q.IsEmpty() || q.getFirst() != nil || q.Len() != 0 {
		t.Error("queue not empty")
	}

	// a removed thread may be queued again
	q.pushFront(ts[1])
	q.pushFront(ts[2])
	if got := names(&q); got != "cb" {
		t.Errorf("after pushFront: %q", got)
	}
}

func TestQueueSortIsStable(t *testing.T) {
	a := newArena(8)
	ts := newTestThreads(t, a, 3, 3, 3, 3)
	q := newQueue(a, elemLink)
	for _, th := range ts {
		q.enqueue(th)
	}

	ts[2].priority = 7
	ts[3].priority = 5
	q.sort(higherPriority)
	if got := names(&q); got != "cdab" {
		t.Errorf("sorted %q, want cdab", got)
	}
}

func TestQueueLinksAreIndependent(t *testing.T) {
	a := newArena(4)
	ts := newTestThreads(t, a, 1, 2)
	elems := newQueue(a, elemLink)
	donors := newQueue(a, donorLink)

	elems.enqueue(ts[0])
	elems.enqueue(ts[1])
	donors.enqueue(ts[1])
	donors.enqueue(ts[0])

	if names(&elems) != "ab" || names(&donors) != "ba" {
		t.Errorf("elems %q, donors %q", names(&elems), names(&donors))
	}
	elems.getItem(ts[0])
	if names(&donors) != "ba" {
		t.Errorf("removing from elems changed donors: %q", names(&donors))
	}
}

func TestQueueForEachMayRemove(t *testing.T) {
	a := newArena(8)
	ts := newTestThreads(t, a, 1, 2, 3, 4, 5)
	q := newQueue(a, elemLink)
	for _, th := range ts {
		q.enqueue(th)
	}

	q.forEach(func(th *Thread) {
		if th.priority%2 == 1 {
			q.getItem(th)
		}
	})
	if got := names(&q); got != "bd" {
		t.Errorf("after removing odd priorities: %q", got)
	}
}

func TestQueueDoubleInsertPanics(t *testing.T) {
	a := newArena(2)
	ts := newTestThreads(t, a, 1)
	q := newQueue(a, elemLink)
	q.enqueue(ts[0])

	defer func() {
		if recover() == nil {
			t.Error("second enqueue did not panic")
		}
	}()
	q.enqueue(ts[0])
}

func TestQueueEarlierWake(t *testing.T) {
	a := newArena(4)
	ts := newTestThreads(t, a, 0, 0, 0)
	for i, w := range []int64{30, 10, 20} {
		ts[i].wakeTick = w
	}
	q := newQueue(a, elemLink)
	for _, th := range ts {
		q.insert(th, earlierWake)
	}
	if got := names(&q); got != "bca" {
		t.Errorf("sleep order %q, want bca", got)
	}
}
