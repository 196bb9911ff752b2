// Package heartbeat provides a minimal periodic-alarm task demonstrating
// the Task contract against a real kernel clock end to end: spec.md
// pushes concrete device drivers out of scope, but the kernel still
// needs at least one task exercising SET_ALARM/ALARM the way a
// real sensor-polling or LED-blink task would. Modeled on
// internal/clock's job-lifecycle shape and the teacher's TagState
// convention (internal/task.StateMachine) generalized to one state:
// WAITING.
package heartbeat

import (
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/task"
)

const waiting task.State = 1

// Heartbeat re-arms a single-shot alarm every periodMillis, counting
// how many times it has fired. It has no peripheral to drive — Tick is
// the hook a concrete node wires to something observable (toggling a
// GPIO line, say).
type Heartbeat struct {
	task.StateMachine

	id       core.TaskID
	clockID  core.TaskID
	periodMs int64
	out      interfaces.Sender
	log      interfaces.Logger

	job   core.Info
	Ticks uint64
	Tick  func(count uint64)
}

// New builds a Heartbeat task with the given TaskID, re-arming against
// clockID every periodMillis milliseconds once started.
func New(id, clockID core.TaskID, periodMillis int64, out interfaces.Sender, log interfaces.Logger) *Heartbeat {
	return &Heartbeat{id: id, clockID: clockID, periodMs: periodMillis, out: out, log: log}
}

// ID implements task.Task.
func (h *Heartbeat) ID() core.TaskID { return h.id }

// Receive implements task.Task: INIT arms the first alarm, ALARM
// re-arms the next one after incrementing the tick count and invoking
// Tick, if set.
func (h *Heartbeat) Receive(msg *core.Message) core.Errno {
	switch msg.Opcode {
	case core.OpInit:
		h.arm()
		return core.EOK
	case core.OpAlarm:
		if h.State() != waiting || msg.JobInfo != &h.job {
			return core.ENOMSG
		}
		h.Resume()
		h.Ticks++
		if h.Tick != nil {
			h.Tick(h.Ticks)
		}
		h.arm()
		return core.EOK
	default:
		return core.ENOMSG
	}
}

func (h *Heartbeat) arm() {
	h.Suspend(waiting, h.id)
	h.out.Send(core.Message{
		Sender: h.id, Receiver: h.clockID, Opcode: core.OpSetAlarm,
		JobInfo: &h.job, IoctlParam: h.periodMs,
	})
}
