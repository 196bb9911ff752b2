package noded

import (
	"testing"

	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/task"
)

type fakeAppTask struct {
	id core.TaskID
}

func (f *fakeAppTask) ID() core.TaskID { return f.id }
func (f *fakeAppTask) Receive(msg *core.Message) core.Errno {
	if msg.Opcode != core.OpInit {
		return core.ENOMSG
	}
	return core.EOK
}

func TestNewNodeRejectsAppTaskCollidingWithKernelService(t *testing.T) {
	newAppTasks := func(interfaces.Sender) map[TaskID]task.Task {
		return map[TaskID]task.Task{TaskBus: &fakeAppTask{id: TaskBus}}
	}
	if _, err := NewNode(Config{}, newAppTasks, nil); err == nil {
		t.Fatal("expected an error when an application task reuses a kernel service TaskID")
	}
}

func TestNewNodeReportsHardwareOpenFailure(t *testing.T) {
	cfg := Config{
		SerialPath: "/nonexistent/noded-test-serial",
		SerialBaud: 9600,
		I2CPath:    "/nonexistent/noded-test-i2c",
	}
	newAppTasks := func(interfaces.Sender) map[TaskID]task.Task {
		return map[TaskID]task.Task{FirstAppTask: &fakeAppTask{id: FirstAppTask}}
	}
	if _, err := NewNode(cfg, newAppTasks, []TaskID{FirstAppTask}); err == nil {
		t.Fatal("expected an error opening a nonexistent serial device")
	}
}

func TestNewNodeWithNoAppTasksSucceedsCollisionCheck(t *testing.T) {
	cfg := Config{SerialPath: "/nonexistent/noded-test-serial", SerialBaud: 9600, I2CPath: "/nonexistent/noded-test-i2c"}
	if _, err := NewNode(cfg, nil, nil); err == nil {
		t.Fatal("expected an error opening a nonexistent serial device")
	}
}
