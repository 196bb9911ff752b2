package sysinit

import (
	"testing"

	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/mq"
	"github.com/meshwire/noded/internal/task"
)

type fakeTask struct {
	id         core.TaskID
	acked      bool
	failAlways bool
}

func (f *fakeTask) ID() core.TaskID { return f.id }

func (f *fakeTask) Receive(msg *core.Message) core.Errno {
	if msg.Opcode != core.OpInit {
		return core.ENOMSG
	}
	if f.failAlways {
		return core.EAGAIN
	}
	f.acked = true
	return core.EOK
}

type initingTask struct {
	fakeTask
	initCalled      bool
	ackedBeforeInit bool
	initErrno       core.Errno
}

func (i *initingTask) Init() core.Errno {
	i.initCalled = true
	i.ackedBeforeInit = i.acked
	return i.initErrno
}

func TestCascadeAcksEveryEntryInOrder(t *testing.T) {
	a := &fakeTask{id: 1}
	b := &fakeTask{id: 2}
	tasks := map[core.TaskID]task.Task{1: a, 2: b}

	sched := mq.NewScheduler(mq.NewQueue(), tasks, nil, nil)
	if err := Cascade(sched, tasks, []core.TaskID{1, 2}); err != nil {
		t.Fatalf("Cascade returned error: %v", err)
	}
	if !a.acked || !b.acked {
		t.Error("expected both tasks to ack INIT")
	}
}

func TestCascadeRunsInitializerBeforeReceive(t *testing.T) {
	it := &initingTask{fakeTask: fakeTask{id: 1}, initErrno: core.EOK}
	tasks := map[core.TaskID]task.Task{1: it}

	sched := mq.NewScheduler(mq.NewQueue(), tasks, nil, nil)
	if err := Cascade(sched, tasks, []core.TaskID{1}); err != nil {
		t.Fatalf("Cascade returned error: %v", err)
	}
	if !it.initCalled {
		t.Error("expected Init to run before Receive(INIT)")
	}
	if it.ackedBeforeInit {
		t.Error("expected Init to run before Receive(INIT), but INIT was already acked")
	}
}

func TestCascadeFailsOnMissingDispatchEntry(t *testing.T) {
	tasks := map[core.TaskID]task.Task{}
	sched := mq.NewScheduler(mq.NewQueue(), tasks, nil, nil)
	if err := Cascade(sched, tasks, []core.TaskID{9}); err == nil {
		t.Error("expected an error for an inittab entry with no dispatch-table task")
	}
}
