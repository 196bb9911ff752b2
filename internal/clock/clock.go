// Package clock multiplexes one hardware overflow-interrupt counter
// onto an arbitrary number of software alarms (spec §4.3). It owns no
// messages — jobs are task-owned *core.Info blocks on loan — and posts
// exactly one ALARM per expired job back through the node's Sender.
// Grounded on the teacher's internal/queue timer/retry bookkeeping
// style (ordered pending-work lists, renormalization to keep arithmetic
// in machine-word range) generalized from ublk's fixed I/O-descriptor
// set to an open-ended job list.
package clock

import (
	"sync"

	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
)

// Counter is the hardware-counter abstraction the clock drives: arm it
// to fire once after the given number of ticks, or stop it when the
// pending list empties. internal/reactor implements this over an
// io_uring IORING_OP_TIMEOUT; tests use a fake.
type Counter interface {
	// Arm schedules a single callback invocation after ticks ticks have
	// elapsed, replacing any previously armed callback.
	Arm(ticks int64, fire func())
	// Stop cancels a pending Arm, if any.
	Stop()
}

// Clock implements the clock task described by spec §4.3: SET_ALARM,
// CANCEL, and the ISR-context expiry sweep, here driven by Counter's
// callback instead of a real overflow interrupt.
type Clock struct {
	id  core.TaskID
	hw  Counter
	out interfaces.Sender

	mu     sync.Mutex
	head   *core.Info // ordered by ExpiryTicks ascending
	ticks  int64       // absolute time the current hw window ends
	active bool
}

// New builds a Clock task with the given TaskID, driving hw and
// posting ALARM messages through out.
func New(id core.TaskID, hw Counter, out interfaces.Sender) *Clock {
	return &Clock{id: id, hw: hw, out: out}
}

// ID implements task.Task.
func (c *Clock) ID() core.TaskID { return c.id }

// Receive implements task.Task. It accepts OpSetAlarm and OpCancel from
// any task, and OpInit for the sysinit cascade.
func (c *Clock) Receive(msg *core.Message) core.Errno {
	switch msg.Opcode {
	case core.OpInit:
		return core.EOK
	case core.OpSetAlarm:
		return c.setAlarm(msg.Sender, msg.JobInfo, msg.IoctlParam)
	case core.OpCancel:
		return c.cancel(msg.JobInfo)
	default:
		return core.ENOMSG
	}
}

func millisToTicks(delayMillis int64) int64 {
	// One tick per millisecond; StepSize ticks is one hardware rollover.
	// This keeps the spec's "STEP_SIZE prescaled so a rollover is a
	// known number of ticks" literal without needing a real prescaler.
	return delayMillis
}

// setAlarm implements SET_ALARM(info, delay_ms) (spec §4.3).
func (c *Clock) setAlarm(sender core.TaskID, info *core.Info, delayMillis int64) core.Errno {
	if delayMillis < 0 || delayMillis > constants.MaxMillis {
		c.out.Send(core.Message{Sender: c.id, Receiver: sender, Opcode: core.OpAlarm, Result: core.EINVAL, JobInfo: info})
		return core.EOK
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	info.ReplyTo = sender
	info.Next = nil
	delayTicks := millisToTicks(delayMillis)

	if !c.active {
		c.ticks = 0
		info.ExpiryTicks = delayTicks
		c.head = info
		c.active = true
		c.armHead()
		return core.EOK
	}

	c.renormalizeIfNeeded()
	info.ExpiryTicks = c.ticks + delayTicks
	c.insertOrdered(info)
	return core.EOK
}

// renormalizeIfNeeded subtracts a large quiescent prefix from every
// pending expiry (and from c.ticks) once it grows past
// RenormalizeThreshold, keeping the list's arithmetic in machine-word
// range (spec §4.3 "renormalize the list"). Gated on a threshold rather
// than run unconditionally on every insert: renormalizing is O(n) over
// the pending list, and with ticks measured in milliseconds and
// MaxMillis capping any one delay, the list cannot need it more than
// once every RenormalizeThreshold ticks.
func (c *Clock) renormalizeIfNeeded() {
	if c.ticks < constants.RenormalizeThreshold {
		return
	}
	prefix := c.ticks - constants.Spacing
	c.ticks -= prefix
	for j := c.head; j != nil; j = j.Next {
		j.ExpiryTicks -= prefix
	}
}

// insertOrdered inserts info into the pending list in ExpiryTicks
// order, enforcing the minimum Spacing between adjacent expiries (spec
// §4.3: "push the later ones forward by SPACING so the ISR emits at
// most one ALARM per rollover"), and re-arms the hardware counter if
// info becomes the new head.
func (c *Clock) insertOrdered(info *core.Info) {
	if c.head == nil || info.ExpiryTicks < c.head.ExpiryTicks {
		info.Next = c.head
		c.head = info
		c.enforceSpacingFrom(c.head)
		c.armHead()
		return
	}

	prev := c.head
	for prev.Next != nil && prev.Next.ExpiryTicks <= info.ExpiryTicks {
		prev = prev.Next
	}
	info.Next = prev.Next
	prev.Next = info
	c.enforceSpacingFrom(prev)
}

// enforceSpacingFrom walks forward from start, pushing any entry whose
// expiry is within Spacing ticks of its predecessor forward to
// predecessor+Spacing.
func (c *Clock) enforceSpacingFrom(start *core.Info) {
	for j := start; j != nil && j.Next != nil; j = j.Next {
		if j.Next.ExpiryTicks-j.ExpiryTicks < constants.Spacing {
			j.Next.ExpiryTicks = j.ExpiryTicks + constants.Spacing
		}
	}
}

// armHead programs the hardware counter to fire when the head entry
// expires.
func (c *Clock) armHead() {
	if c.head == nil {
		c.hw.Stop()
		c.active = false
		return
	}
	delta := c.head.ExpiryTicks - c.ticks
	if delta < 0 {
		delta = 0
	}
	c.hw.Arm(delta, c.onOverflow)
}

// onOverflow is Counter's fire callback: the clock's ISR-context expiry
// sweep (spec §4.3). It posts ALARM to every job whose expiry has been
// reached, unlinking each, then re-arms for the new head or deactivates.
func (c *Clock) onOverflow() {
	c.mu.Lock()
	if c.head == nil {
		c.mu.Unlock()
		return
	}
	// Arm was programmed to fire exactly when the head last seen by
	// armHead expired; that is "ticks" reaching the head's expiry.
	overflowAt := c.head.ExpiryTicks

	var fired []*core.Info
	for c.head != nil && c.head.ExpiryTicks <= overflowAt {
		job := c.head
		c.head = c.head.Next
		job.Next = nil
		fired = append(fired, job)
	}
	c.ticks = overflowAt
	c.armHead()
	c.mu.Unlock()

	for _, job := range fired {
		c.out.Send(core.Message{Sender: c.id, Receiver: job.ReplyTo, Opcode: core.OpAlarm, Result: core.EOK, JobInfo: job})
	}
}

// cancel implements CANCEL(info) (spec §4.3, §4.7 cancellation races):
// unlinks info if still pending (EOK), or reports ESRCH if the ISR has
// already fired it (or it was never scheduled).
func (c *Clock) cancel(info *core.Info) core.Errno {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.head == info {
		c.head = info.Next
		info.Next = nil
		c.armHead()
		return core.EOK
	}
	for j := c.head; j != nil; j = j.Next {
		if j.Next == info {
			j.Next = info.Next
			info.Next = nil
			return core.EOK
		}
	}
	return core.ESRCH
}
