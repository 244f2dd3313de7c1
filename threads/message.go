/*
message.go one-word messages between threads

Each thread has room for a single message. A sender never blocks; a
receiver blocks until a message arrives.
*/

package threads

// Send passes msg to thread tid and readies it if it waits in Receive.
// It fails with ErrBadThread if tid is not a live thread and with ErrSYSERR
// if the thread already has a message waiting.
// It does not sleep and may be called in an interrupt handler.
func (k *Kernel) Send(tid Tid32, msg Umsg32) error {
	mask := k.Disable()

	t := k.Lookup(tid)
	if t == nil || t.status == ThreadDying {
		k.Restore(mask)
		return ErrBadThread
	}
	if t.hasMsg {
		// if there is a previous message to be received, do not overwrite it
		k.Restore(mask)
		return ErrSYSERR
	}

	// save the msg and notify the receiver by setting hasMsg
	t.msg = msg
	t.hasMsg = true

	woke := false
	if t.status == ThreadBlocked && t.recvWait {
		t.recvWait = false
		k.unblock(t)
		woke = true
	}
	k.Restore(mask)

	if woke {
		k.checkPreempt()
	}
	return OK
}

// Receive waits for a message and returns it
func (k *Kernel) Receive() Umsg32 {
	k.assert(!k.inExternal, "receive in interrupt context")

	mask := k.Disable()
	defer k.Restore(mask)

	t := k.Current()
	for !t.hasMsg {
		// no message available now, wait for it
		t.recvWait = true
		k.Block()
	}

	// retrieve the message before interrupts come back on, a handler
	// could send a new one once hasMsg is reset
	msg := t.msg
	t.hasMsg = false
	return msg
}

// RecvClr clears and returns the waiting message, if any. It never blocks;
// ErrEMPTY means there was no message.
func (k *Kernel) RecvClr() (Umsg32, error) {
	mask := k.Disable()
	defer k.Restore(mask)

	t := k.Current()
	if !t.hasMsg {
		return NoneMsg, ErrEMPTY
	}

	msg := t.msg
	t.hasMsg = false
	return msg, OK
}
