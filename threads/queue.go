/*
queue.go intrusive thread queues

Every list of threads in the kernel (ready list, sleep list, semaphore
waiters, destruction requests, donor sets) is a doubly linked list threaded
through the thread records themselves. Links are arena indices, not
pointers, so a record never moves and a queue never allocates.

A record carries one qentry per link kind. The elem link is shared by the
ready list, the sleep list, semaphore waiter lists and the destruction
list: a thread is on at most one of them at a time. The donor link is only
used by the donor set of the thread it donates to.
*/

package threads

import (
	"fmt"
	"sort"
)

type linkKind uint8

const (
	elemLink  linkKind = 0
	donorLink linkKind = 1
	numLinks           = 2
)

// qentry struct represents the links of one thread in one queue
type qentry struct {
	qnext Qid16 // index of next thread or EMPTY
	qprev Qid16 // index of previous thread or EMPTY
	onq   bool
}

// queue is a list of threads linked through one link kind
type queue struct {
	tab  *arena
	link linkKind
	head Qid16
	tail Qid16
	n    int
}

func newQueue(tab *arena, link linkKind) queue {
	return queue{tab: tab, link: link, head: EMPTY, tail: EMPTY}
}

func (q *queue) at(id Qid16) *Thread {
	if id == EMPTY {
		return nil
	}
	return &q.tab.slots[id]
}

func (q *queue) entry(t *Thread) *qentry {
	return &t.links[q.link]
}

// IsEmpty function checks if the queue is empty
func (q *queue) IsEmpty() bool {
	return q.head == EMPTY
}

// Len returns the number of threads on the queue
func (q *queue) Len() int {
	return q.n
}

// First returns the thread at the front of the queue, nil when empty
func (q *queue) First() *Thread {
	return q.at(q.head)
}

// Last returns the thread at the tail of the queue, nil when empty
func (q *queue) Last() *Thread {
	return q.at(q.tail)
}

// Next returns the thread after t on the queue
func (q *queue) Next(t *Thread) *Thread {
	return q.at(q.entry(t).qnext)
}

func (q *queue) linkBetween(t *Thread, prev, next Qid16) {
	e := q.entry(t)
	if e.onq {
		panic(fmt.Sprintf("thread %s(%d) is already on a queue", t.name, t.tid))
	}
	e.qprev = prev
	e.qnext = next
	e.onq = true

	if prev == EMPTY {
		q.head = t.slot
	} else {
		q.entry(q.at(prev)).qnext = t.slot
	}
	if next == EMPTY {
		q.tail = t.slot
	} else {
		q.entry(q.at(next)).qprev = t.slot
	}
	q.n++
}

// getItem removes t from an arbitrary point in the queue
func (q *queue) getItem(t *Thread) *Thread {
	e := q.entry(t)
	if !e.onq {
		panic(fmt.Sprintf("thread %s(%d) is not on a queue", t.name, t.tid))
	}

	// kick out the thread t
	if e.qprev == EMPTY {
		q.head = e.qnext
	} else {
		q.entry(q.at(e.qprev)).qnext = e.qnext
	}
	if e.qnext == EMPTY {
		q.tail = e.qprev
	} else {
		q.entry(q.at(e.qnext)).qprev = e.qprev
	}

	e.qnext, e.qprev, e.onq = EMPTY, EMPTY, false
	q.n--
	return t
}

// getFirst removes the thread at the front of the queue, nil when empty
func (q *queue) getFirst() *Thread {
	if q.IsEmpty() {
		return nil
	}
	return q.getItem(q.First())
}

// enqueue inserts t at the tail of the queue
func (q *queue) enqueue(t *Thread) {
	q.linkBetween(t, q.tail, EMPTY)
}

// pushFront inserts t at the head of the queue
func (q *queue) pushFront(t *Thread) {
	q.linkBetween(t, EMPTY, q.head)
}

// insert puts t right before the first thread e for which before(t, e)
// holds, or at the tail when there is none. With a strict comparison the
// queue stays FIFO among equal keys.
func (q *queue) insert(t *Thread, before func(t, e *Thread) bool) {
	next := q.head
	for next != EMPTY && !before(t, q.at(next)) {
		next = q.entry(q.at(next)).qnext
	}
	if next == EMPTY {
		q.enqueue(t)
		return
	}
	q.linkBetween(t, q.entry(q.at(next)).qprev, next)
}

// sort re-orders the queue by less, keeping the relative order of threads
// that compare equal.
func (q *queue) sort(less func(a, b *Thread) bool) {
	if q.n < 2 {
		return
	}
	ts := q.slice()
	sort.SliceStable(ts, func(i, j int) bool { return less(ts[i], ts[j]) })
	for _, t := range ts {
		q.getItem(t)
	}
	for _, t := range ts {
		q.enqueue(t)
	}
}

// forEach calls fn on every thread front to back. fn may remove the thread
// it is called with.
func (q *queue) forEach(fn func(t *Thread)) {
	for t := q.First(); t != nil; {
		next := q.Next(t)
		fn(t)
		t = next
	}
}

func (q *queue) slice() []*Thread {
	ts := make([]*Thread, 0, q.n)
	for t := q.First(); t != nil; t = q.Next(t) {
		ts = append(ts, t)
	}
	return ts
}

// higherPriority orders a queue by effective priority, highest first
func higherPriority(t, e *Thread) bool {
	return t.priority > e.priority
}

// earlierWake orders a queue by wake tick, earliest first
func earlierWake(t, e *Thread) bool {
	return t.wakeTick < e.wakeTick
}
