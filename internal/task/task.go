// Package task defines the contract every message-consumer in the node
// implements (spec §4.2): a state machine with a typed inbox, one
// receive function, and no blocking primitive. Modeled on the teacher's
// TagState convention in internal/queue/runner.go, generalized from one
// fixed three-state enum to an arbitrary per-task waiting-state set.
package task

import "github.com/meshwire/noded/internal/core"

// State is a task's private waiting-state enum. Every task defines its
// own concrete values; IDLE is always zero (spec §4.2's state-machine
// convention).
type State int

// IDLE is the zero value every task state machine starts from and
// returns to after a completed or failed request (spec §4.2).
const IDLE State = 0

// Task is the contract every state-machine consumer implements (spec
// §4.2). Receive is the one entry point the scheduler calls; it must
// never block and must return ENOMSG only when the opcode is genuinely
// unexpected in the task's current state.
type Task interface {
	// ID returns the task's dense, build-time-assigned identifier.
	ID() core.TaskID

	// Receive dispatches one message and returns EOK on success or
	// ENOMSG if msg was not valid in the task's current state.
	Receive(msg *core.Message) core.Errno
}

// Initializer is implemented by tasks that need to do more at startup
// than reply to a plain INIT message — e.g. tasks/console.Greeter
// writing its startup banner before it handles INIT.
type Initializer interface {
	// Init runs once, during the sysinit cascade, before the task's
	// Receive is reachable from any other task.
	Init() core.Errno
}

// Consumer is implemented by tasks that accept character streams via
// the NOT_EMPTY pull-iterator protocol (spec §4.6). Consume is called
// once per NOT_EMPTY notification; the task pulls bytes from provider
// until it returns EWOULDBLOCK or the task's own framing is satisfied.
type Consumer interface {
	Consume(provider core.CharProvider) core.Errno
}

// StateMachine is an embeddable helper giving a task a private waiting
// state plus the "suspend on one outstanding request" bookkeeping spec
// §9 describes: a task suspends by leaving State non-IDLE and recording
// who it owes a reply to.
type StateMachine struct {
	state   State
	replyTo core.TaskID
}

// State returns the task's current waiting state.
func (s *StateMachine) State() State { return s.state }

// Idle reports whether the task is at rest (no request outstanding).
func (s *StateMachine) Idle() bool { return s.state == IDLE }

// Suspend records that the task has issued a request and is now
// waiting in the given non-IDLE state for a correlating reply.
func (s *StateMachine) Suspend(state State, replyTo core.TaskID) {
	s.state = state
	s.replyTo = replyTo
}

// Resume resets the task to IDLE and returns the task it owes a reply
// to, clearing the pending reply target. Matches spec §4.2's "error
// replies uniformly reset state to IDLE" rule; callers use the returned
// TaskID to forward a result before resuming other work.
func (s *StateMachine) Resume() core.TaskID {
	replyTo := s.replyTo
	s.state = IDLE
	s.replyTo = 0
	return replyTo
}

// ReplyTo returns the task currently owed a reply, or 0 if idle.
func (s *StateMachine) ReplyTo() core.TaskID { return s.replyTo }
