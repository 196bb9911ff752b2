package task

import (
	"testing"

	"github.com/meshwire/noded/internal/core"
)

const waitingForAlarm State = 1

func TestStateMachineStartsIdle(t *testing.T) {
	var sm StateMachine
	if !sm.Idle() {
		t.Error("a fresh StateMachine should be idle")
	}
	if sm.State() != IDLE {
		t.Errorf("State() = %v, want IDLE", sm.State())
	}
}

func TestSuspendAndResume(t *testing.T) {
	var sm StateMachine
	sm.Suspend(waitingForAlarm, core.TaskID(7))

	if sm.Idle() {
		t.Error("Suspend should leave the task non-idle")
	}
	if sm.ReplyTo() != 7 {
		t.Errorf("ReplyTo() = %d, want 7", sm.ReplyTo())
	}

	replyTo := sm.Resume()
	if replyTo != 7 {
		t.Errorf("Resume() returned %d, want 7", replyTo)
	}
	if !sm.Idle() {
		t.Error("Resume should reset the task to IDLE")
	}
	if sm.ReplyTo() != 0 {
		t.Error("Resume should clear the pending reply target")
	}
}

// fakeTask exercises the Task interface with the minimal surface a real
// task implements, confirming the interface is satisfiable by a simple
// embedder of StateMachine.
type fakeTask struct {
	StateMachine
	id        core.TaskID
	gotInit   bool
	gotPulled string
}

func (f *fakeTask) ID() core.TaskID { return f.id }

func (f *fakeTask) Receive(msg *core.Message) core.Errno {
	switch msg.Opcode {
	case core.OpInit:
		return core.EOK
	case core.OpSetAlarm:
		f.Suspend(waitingForAlarm, msg.Sender)
		return core.EOK
	case core.OpAlarm:
		if f.Idle() {
			return core.ENOMSG
		}
		f.Resume()
		return core.EOK
	default:
		return core.ENOMSG
	}
}

func (f *fakeTask) Init() core.Errno {
	f.gotInit = true
	return core.EOK
}

func (f *fakeTask) Consume(provider core.CharProvider) core.Errno {
	b, errno := provider()
	if errno != core.EOK {
		return errno
	}
	f.gotPulled = string(b)
	return core.EOK
}

func TestFakeTaskSatisfiesInterfaces(t *testing.T) {
	var _ Task = (*fakeTask)(nil)
	var _ Initializer = (*fakeTask)(nil)
	var _ Consumer = (*fakeTask)(nil)

	ft := &fakeTask{id: 3}
	if ft.Receive(&core.Message{Opcode: core.OpAlarm}) != core.ENOMSG {
		t.Error("ALARM with no outstanding request should return ENOMSG")
	}

	ft.Receive(&core.Message{Opcode: core.OpSetAlarm, Sender: 9})
	if ft.Idle() {
		t.Error("SET_ALARM should suspend the task")
	}
	if ft.Receive(&core.Message{Opcode: core.OpAlarm}) != core.EOK {
		t.Error("ALARM should resume a suspended task")
	}
	if !ft.Idle() {
		t.Error("task should be IDLE again after its ALARM reply")
	}
}
