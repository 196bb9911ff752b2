package mq

import (
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/logging"
	"github.com/meshwire/noded/internal/task"
)

// noopRecorder is used when a Scheduler is built without metrics, e.g.
// in unit tests that only care about dispatch order.
type noopRecorder struct{}

func (noopRecorder) RecordDispatch()               {}
func (noopRecorder) RecordLoss()                   {}
func (noopRecorder) RecordQueueDepth(depth uint32) {}

// Scheduler owns the Queue and the build-time dispatch table mapping
// each TaskID to its Task (spec §4.1: "looks up the receiver's entry in
// a build-time dispatch table; invokes it"). It is the one and only
// "process context" (spec §9): all Task.Receive calls happen here, on
// one goroutine. Scheduler itself satisfies interfaces.Sender, so the
// clock, bus and secretary services can post messages back without
// importing mq.
type Scheduler struct {
	queue   *Queue
	tasks   map[core.TaskID]task.Task
	metrics interfaces.Recorder
	log     interfaces.Logger

	stop chan struct{}
}

// NewScheduler builds a Scheduler over queue, dispatching to tasks. A
// nil metrics disables counter recording; a nil logger uses the package
// default (logging.Default()).
func NewScheduler(queue *Queue, tasks map[core.TaskID]task.Task, metrics interfaces.Recorder, log interfaces.Logger) *Scheduler {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Scheduler{queue: queue, tasks: tasks, metrics: metrics, log: log, stop: make(chan struct{})}
}

// Send enqueues msg for later dispatch, recording a loss if the
// relevant lane is full.
func (s *Scheduler) Send(msg core.Message) {
	if !s.queue.Enqueue(msg) {
		s.metrics.RecordLoss()
		s.log.Warn("message dropped, queue full", "opcode", msg.Opcode.String(), "receiver", msg.Receiver)
		return
	}
	s.metrics.RecordQueueDepth(s.queue.Depth())
}

// dispatch delivers one already-popped message to its receiver's
// dispatch-table entry (spec §4.1).
func (s *Scheduler) dispatch(msg core.Message) {
	s.metrics.RecordQueueDepth(s.queue.Depth())

	t, found := s.tasks[msg.Receiver]
	if !found || msg.Receiver == 0 {
		s.metrics.RecordLoss()
		s.log.Warn("no receiver for message", "receiver", msg.Receiver, "opcode", msg.Opcode.String())
		return
	}

	var errno core.Errno
	if msg.Opcode == core.OpNotEmpty {
		// NOT_EMPTY is handed to the task's Consume helper rather than
		// its general Receive, per spec §4.2's "a consume() helper
		// exists on tasks that also accept character streams" — a task
		// registered as a mux consumer without implementing Consumer is
		// a wiring bug, reported the same way an unrecognized opcode is.
		c, ok := t.(task.Consumer)
		if !ok {
			errno = core.ENOMSG
		} else {
			errno = c.Consume(msg.Provider)
		}
	} else {
		errno = t.Receive(&msg)
	}

	if errno == core.ENOMSG {
		s.metrics.RecordLoss()
		s.log.Debug("unrecognized opcode for task", "task", msg.Receiver, "opcode", msg.Opcode.String())
	}
	s.metrics.RecordDispatch()
}

// Run drains the queue forever (spec §4.1's dispatch_forever), parking
// on the queue's condition variable between arrivals rather than
// busy-waiting. Matches spec §9's "exactly one process context" — Run
// is the only place Task.Receive is invoked. Stop ends the loop once
// the queue next drains.
func (s *Scheduler) Run() {
	for {
		msg, ok := s.queue.DequeueBlocking()
		if !ok {
			return
		}
		s.dispatch(msg)
	}
}

// RunUntilEmpty drains every currently-queued message and returns,
// without blocking waiting for new arrivals. Used by tests and by the
// sysinit cascade, which needs synchronous drain-to-quiescence
// semantics rather than an unbounded loop.
func (s *Scheduler) RunUntilEmpty() {
	for {
		msg, ok := s.queue.Dequeue()
		if !ok {
			return
		}
		s.dispatch(msg)
	}
}

// Stop ends a running Run loop once the queue next drains.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.queue.Close()
}
