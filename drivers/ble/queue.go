package ble

import "periphcode-go/errcode"

// queueSize is the event queue capacity. Must divide 256 so the monotonic
// uint8 indices wrap cleanly.
const queueSize = 8

// eventQueue is a fixed-capacity FIFO bridging interrupt-produced events to
// foreground consumption. Head and tail are monotonic; the difference is the
// fill level. A full queue rejects the new event: old events are never
// evicted, and there is no backpressure path into the radio, so the producing
// interrupt context drops the event on the floor.
type eventQueue struct {
	buf  [queueSize]Event
	head uint8 // next write (producer: interrupt entry or command)
	tail uint8 // next read (consumer: foreground Process)
}

func (q *eventQueue) push(e *Event) error {
	if q.head-q.tail >= queueSize {
		return errcode.QueueFull
	}
	q.buf[q.head%queueSize] = *e
	q.head++
	return nil
}

func (q *eventQueue) pop(e *Event) bool {
	if q.tail == q.head {
		return false
	}
	*e = q.buf[q.tail%queueSize]
	q.tail++
	return true
}

func (q *eventQueue) reset() {
	q.head = 0
	q.tail = 0
}

func (q *eventQueue) len() int {
	return int(q.head - q.tail)
}
