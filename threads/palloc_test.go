package threads

import (
	"testing"
)

func TestArenaGetFree(t *testing.T) {
	a := newArena(3)

	var got []*Thread
	for i := 0; i < 3; i++ {
		th, err := a.get()
		if err != nil {
			t.Fatalf("get #%d: %v", i, err)
		}
		if int(th.slot) != i {
			t.Errorf("slot %d, want %d", th.slot, i)
		}
		for _, e := range th.links {
			if e.qnext != EMPTY || e.qprev != EMPTY || e.onq {
				t.Errorf("fresh record has links %+v", e)
			}
		}
		got = append(got, th)
	}
	if _, err := a.get(); err != ErrNoMem {
		t.Errorf("get on a full arena = %v, want ErrNoMem", err)
	}
	if a.count() != 3 {
		t.Errorf("count() = %d", a.count())
	}

	got[1].magic = ThreadMagic
	got[1].name = "old"
	a.free(got[1])
	if got[1].magic != 0 || got[1].status != ThreadFree || a.count() != 2 {
		t.Errorf("freed record %+v, count %d", got[1], a.count())
	}

	th, err := a.get()
	if err != nil || th != got[1] || th.name != "" {
		t.Errorf("reused slot: %v, %v", th, err)
	}
}

func TestArenaEach(t *testing.T) {
	a := newArena(5)
	for i := 0; i < 4; i++ {
		a.get()
	}
	a.free(&a.slots[1])

	var slots []Qid16
	a.each(func(th *Thread) bool {
		slots = append(slots, th.slot)
		return true
	})
	if len(slots) != 3 || slots[0] != 0 || slots[1] != 2 || slots[2] != 3 {
		t.Errorf("each visited %v", slots)
	}

	n := 0
	a.each(func(*Thread) bool {
		n++
		return false
	})
	if n != 1 {
		t.Errorf("each did not stop: %d calls", n)
	}
}
