// Package mq implements the message fabric: a fixed-capacity two-lane
// queue (spec §3, §4.1) and the scheduler that drains it into a
// build-time dispatch table of tasks. Grounded on the teacher's
// internal/queue package, which plays the analogous "single ring buffer
// feeding a fixed worker set" role for ublk I/O descriptors.
package mq

import (
	"sync"

	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
)

// Queue is the single bounded ring of messages described by spec §3's
// "Queue" glossary entry: logically partitioned into an urgent lane
// (ISR-originated: ALARM, EOC, MASTER_COMPLETE, SLAVE_COMPLETE,
// NOT_BUSY, NOT_EMPTY) and a normal lane (everything else), each a
// plain FIFO. Enqueue is safe from concurrent producers via a mutex,
// standing in for "disabling interrupts on enqueue" on real hardware —
// the reactor goroutine and the dispatch loop are the only two
// producers/consumer.
type Queue struct {
	mu      sync.Mutex
	notEmpty *sync.Cond
	urgent  []core.Message
	normal  []core.Message
	lost    uint64
	highMax uint32
	closed  bool
}

// NewQueue returns an empty Queue sized to constants.QueueCapacity per
// lane.
func NewQueue() *Queue {
	q := &Queue{
		urgent: make([]core.Message, 0, constants.QueueCapacity),
		normal: make([]core.Message, 0, constants.QueueCapacity),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends msg to the lane matching its opcode's urgency. It
// reports false (and counts a loss) if that lane is at capacity —
// spec §3/§4.1's "overflow is counted and the offending send is dropped
// silently."
func (q *Queue) Enqueue(msg core.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane := &q.normal
	if msg.Opcode.IsUrgent() {
		lane = &q.urgent
	}
	if len(*lane) >= constants.QueueCapacity {
		q.lost++
		return false
	}
	*lane = append(*lane, msg)
	if depth := uint32(len(q.urgent) + len(q.normal)); depth > q.highMax {
		q.highMax = depth
	}
	q.notEmpty.Signal()
	return true
}

// Dequeue pops the next message to dispatch: all urgent messages drain
// before any normal message is taken (spec §4.1 delivery policy). It
// does not block; ok is false if both lanes are currently empty.
func (q *Queue) Dequeue() (core.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dequeueLocked()
}

func (q *Queue) dequeueLocked() (core.Message, bool) {
	if len(q.urgent) > 0 {
		msg := q.urgent[0]
		q.urgent = q.urgent[1:]
		return msg, true
	}
	if len(q.normal) > 0 {
		msg := q.normal[0]
		q.normal = q.normal[1:]
		return msg, true
	}
	return core.Message{}, false
}

// DequeueBlocking pops the next message, waiting for one to arrive if
// both lanes are currently empty. It returns ok=false only once Close
// has been called and no message remains — the signal a running
// dispatch loop uses to exit (spec §4.1's dispatch_forever, terminated
// here by Scheduler.Stop rather than a hardware halt).
func (q *Queue) DequeueBlocking() (core.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if msg, ok := q.dequeueLocked(); ok {
			return msg, true
		}
		if q.closed {
			return core.Message{}, false
		}
		q.notEmpty.Wait()
	}
}

// Close unblocks any goroutine parked in DequeueBlocking once the
// lanes drain, for a clean Scheduler.Stop.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}

// Depth returns the current combined occupancy of both lanes.
func (q *Queue) Depth() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint32(len(q.urgent) + len(q.normal))
}

// MaxDepth returns the high-water combined occupancy ever observed.
func (q *Queue) MaxDepth() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.highMax
}

// LostMessages returns the running count of sends dropped to overflow.
func (q *Queue) LostMessages() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lost
}
