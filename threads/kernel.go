package threads

import (
	"fmt"
)

// Tid32 is the thread ID
type Tid32 int32

// Pri16 is the thread priority
type Pri16 int16

// Qid16 is the index of a thread record in the thread arena
type Qid16 int16

// Umsg32 is the message type
type Umsg32 uint32

// IntrLevel is the interrupt level: on or off
type IntrLevel uint8

const (
	// IntrOff means interrupts are disabled
	IntrOff IntrLevel = 0
	// IntrOn means interrupts are enabled
	IntrOn IntrLevel = 1
)

func (l IntrLevel) String() string {
	if l == IntrOn {
		return "on"
	}
	return "off"
}

// ThreadFunc is the entry point of a kernel thread
type ThreadFunc func(aux interface{})

// TidError represent the invalid thread id returned by a failed Create
const TidError Tid32 = -1

// EMPTY is the NULL value for qnext or qprev index
const EMPTY Qid16 = -1

// NoneMsg represent the universal invalid message content
const NoneMsg Umsg32 = 0xFFFFFFFF

/* Universal return constants */
var (
	// OK: system call ok
	OK error = nil
	// ErrSYSERR : system call failed
	ErrSYSERR error = fmt.Errorf("SYSERR")
	// ErrEMPTY is the error that caused by invalid operation on empty queue
	ErrEMPTY error = fmt.Errorf("EMPTY")
	// ErrNoMem : no free slot left in the thread arena
	ErrNoMem error = fmt.Errorf("no free thread slot")
	// ErrBadPort : the port id is out of range or the port is not allocated
	ErrBadPort error = fmt.Errorf("bad port")
	// ErrBadThread : the tid does not name a live thread
	ErrBadThread error = fmt.Errorf("bad thread")
)

// PanicError is returned by Kernel.Run when the kernel stopped on a fatal
// contract violation.
type PanicError struct {
	Thread string // name of the running thread, "" for none
	Msg    string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("Kernel PANIC in thread %q: %s", e.Thread, e.Msg)
}
