/* ports.go port management

A port is a bounded queue of one-word messages. Senders block when the
port is full and receivers when it is empty; two semaphores count the free
and the used slots. Message nodes come from one free list shared by every
port.
*/

package threads

const (
	// port state

	// PtStateFree : port is free
	PtStateFree uint16 = 1
	// PtStateAlloc : port is allocated
	PtStateAlloc uint16 = 3
)

// msgNode struct is a node on list of messages
type msgNode struct {
	msg  Umsg32   // a one-word message
	next *msgNode // pointer to next node on list
}

// ptEntry struct is the entry in port table
type ptEntry struct {
	ssem *Semaphore // sender semaphore
	rsem *Semaphore // receiver semaphore

	state  uint16 // port state: free, alloc
	maxcnt uint16 // max messages to be queued

	head *msgNode // head of message list
	tail *msgNode // tail of message list
}

type portTable struct {
	tab    [MaxPorts]ptEntry
	nextID int      // next table entry to try
	free   *msgNode // head of the free list of message nodes
}

// IsBadPort function check if portid is bad
func IsBadPort(portid int) bool {
	return portid < 0 || portid >= MaxPorts
}

// ptInit initializes all ports and the free message list
func (k *Kernel) ptInit(maxmsgs int32) {
	pt := &k.ports

	// allocate port entry starting from index 0
	pt.nextID = 0
	for i := range pt.tab {
		pt.tab[i].state = PtStateFree
	}

	// create a free list of message nodes linked together
	nodes := make([]msgNode, maxmsgs)
	pt.free = nil
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].next = pt.free
		pt.free = &nodes[i]
	}
}

// PtCreate creates a port that allows count outstanding messages
func (k *Kernel) PtCreate(count int) (int, error) {
	mask := k.Disable()
	defer k.Restore(mask)

	if count <= 0 || count > MaxMsgs {
		return -1, ErrSYSERR
	}

	pt := &k.ports
	for i := 0; i < MaxPorts; i++ {
		ptnum := pt.nextID // try allocate this port entry

		// update nextID for next try
		pt.nextID++
		if pt.nextID >= MaxPorts {
			pt.nextID = 0
		}

		ptptr := &pt.tab[ptnum]
		if ptptr.state == PtStateFree {
			ptptr.state = PtStateAlloc

			ptptr.rsem = k.NewSemaphore(0)           // nothing to receive yet
			ptptr.ssem = k.NewSemaphore(uint(count)) // can send count times

			ptptr.head = nil
			ptptr.tail = nil
			ptptr.maxcnt = uint16(count)

			return ptnum, OK
		}
	}

	return -1, ErrEMPTY
}

func (k *Kernel) port(portid int) (*ptEntry, error) {
	if IsBadPort(portid) {
		return nil, ErrBadPort
	}
	ptptr := &k.ports.tab[portid]
	if ptptr.state != PtStateAlloc {
		return nil, ErrBadPort
	}
	return ptptr, OK
}

// PtSend sends msg to a port by adding it to the tail of its queue,
// blocking while the port is full.
func (k *Kernel) PtSend(portid int, msg Umsg32) error {
	k.assert(!k.inExternal, "ptsend in interrupt context")

	mask := k.Disable()
	defer k.Restore(mask)

	ptptr, err := k.port(portid)
	if err != OK {
		return err
	}
	ptptr.ssem.Down()

	pt := &k.ports
	if pt.free == nil {
		// no more free message nodes, give the slot back
		ptptr.ssem.Up()
		return ErrEMPTY
	}

	// obtain node from free list by unlinking
	node := pt.free
	pt.free = node.next
	node.next = nil
	node.msg = msg

	// link into queue for the port
	if ptptr.tail == nil {
		ptptr.head = node
	} else {
		ptptr.tail.next = node
	}
	ptptr.tail = node

	// let the receiver know that there is a msg available
	ptptr.rsem.Up()
	return OK
}

// PtRecv receives the message at the head of a port, blocking while the
// port is empty.
func (k *Kernel) PtRecv(portid int) (Umsg32, error) {
	k.assert(!k.inExternal, "ptrecv in interrupt context")

	mask := k.Disable()
	defer k.Restore(mask)

	ptptr, err := k.port(portid)
	if err != OK {
		return NoneMsg, err
	}
	ptptr.rsem.Down()

	// unlink the head node and return it to the free list
	node := ptptr.head
	ptptr.head = node.next
	if ptptr.head == nil {
		ptptr.tail = nil
	}
	msg := node.msg
	node.next = k.ports.free
	k.ports.free = node

	ptptr.ssem.Up()
	return msg, OK
}

// PtCount returns the number of messages waiting on a port
func (k *Kernel) PtCount(portid int) (int, error) {
	mask := k.Disable()
	defer k.Restore(mask)

	ptptr, err := k.port(portid)
	if err != OK {
		return 0, err
	}
	return int(ptptr.rsem.Value()), OK
}
