package ble

import (
	"periphcode-go/x/mathx"
)

// HandleInterrupt services the radio's interrupt. The flag register is read
// once; every asserted source is handled, each clearing its own flag bit, in
// a fixed order: connected, disconnected, rx-done, tx-done, error. Received
// data is staged for Process rather than queued, since a payload does not fit
// the queue's event slots cheaply; everything else becomes a queued event.
// Enqueue failures are dropped; there is no backpressure path into hardware.
func (r *Radio) HandleInterrupt() {
	flags := r.regs.Read32(regINTFLAG)

	if flags&(1<<intConnected) != 0 {
		r.regs.Write32(regINTFLAG, 1<<intConnected)
		r.state = StateConnected
		_ = r.queue.push(&Event{Kind: EventConnected, Peer: r.peer})
	}

	if flags&(1<<intDisconnected) != 0 {
		r.regs.Write32(regINTFLAG, 1<<intDisconnected)
		r.state = StateIdle
		_ = r.queue.push(&Event{Kind: EventDisconnected})
	}

	if flags&(1<<intRxDone) != 0 {
		r.regs.Write32(regINTFLAG, 1<<intRxDone)
		r.stageRxData()
	}

	if flags&(1<<intTxDone) != 0 {
		r.regs.Write32(regINTFLAG, 1<<intTxDone)
		r.txComplete = true
		_ = r.queue.push(&Event{Kind: EventDataSent})
	}

	if flags&(1<<intError) != 0 {
		r.regs.Write32(regINTFLAG, 1<<intError)
		r.state = StateError
		_ = r.queue.push(&Event{Kind: EventError})
	}
}

// stageRxData drains the receive FIFO into the staging buffer and marks it
// pending for the next Process call.
func (r *Radio) stageRxData() {
	n := mathx.Min(r.regs.Read32(regRXLEN), MaxPayload)
	r.rxLen = uint16(n)
	for i := uint32(0); i < n; i++ {
		r.rxBuf[i] = byte(r.regs.Read32(regRXDATA))
	}
	r.rxPending = true
}

// Process delivers pending events to the registered callback. Staged receive
// data goes first, directly and bypassing the queue (this path is
// foreground-driven and has no reentrancy concern), then the event queue
// drains in FIFO order. The foreground loop must call this periodically.
func (r *Radio) Process() {
	if r.rxPending {
		r.rxPending = false
		evt := Event{Kind: EventDataReceived, Peer: r.peer, Len: r.rxLen}
		copy(evt.Data[:r.rxLen], r.rxBuf[:r.rxLen])
		if r.cb != nil {
			r.cb(&evt)
		}
	}

	var evt Event
	for r.queue.pop(&evt) {
		if r.cb != nil {
			r.cb(&evt)
		}
	}
}
