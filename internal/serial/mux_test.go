package serial

import (
	"testing"

	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
)

type fakeSender struct {
	sent []core.Message
}

func (f *fakeSender) Send(msg core.Message) { f.sent = append(f.sent, msg) }

type fakeLogger struct{}

func (fakeLogger) Debug(string, ...any) {}
func (fakeLogger) Info(string, ...any)  {}
func (fakeLogger) Warn(string, ...any)  {}
func (fakeLogger) Error(string, ...any) {}

func TestPushByteNotifiesOnlyOnEmptyToNonEmptyTransition(t *testing.T) {
	out := &fakeSender{}
	m := New(1, nil, out, fakeLogger{})
	m.Receive(&core.Message{Opcode: core.OpSetIoctl, IoctlCode: constants.SiocConsumer, IoctlParam: 9})

	m.PushByte('a')
	m.PushByte('b')

	if len(out.sent) != 1 {
		t.Fatalf("expected exactly one NOT_EMPTY for the first transition, got %d", len(out.sent))
	}
	if out.sent[0].Opcode != core.OpNotEmpty || out.sent[0].Receiver != 9 {
		t.Fatalf("expected NOT_EMPTY addressed to the registered consumer, got %+v", out.sent[0])
	}
}

func TestPullDrainsRingInOrderThenEWOULDBLOCK(t *testing.T) {
	out := &fakeSender{}
	m := New(1, nil, out, fakeLogger{})
	m.Receive(&core.Message{Opcode: core.OpSetIoctl, IoctlCode: constants.SiocConsumer, IoctlParam: 9})
	m.PushByte('x')
	m.PushByte('y')

	provider := out.sent[0].Provider
	b, errno := provider()
	if errno != core.EOK || b != 'x' {
		t.Fatalf("first pull = (%c, %s), want ('x', EOK)", b, errno)
	}
	b, errno = provider()
	if errno != core.EOK || b != 'y' {
		t.Fatalf("second pull = (%c, %s), want ('y', EOK)", b, errno)
	}
	if _, errno := provider(); errno != core.EWOULDBLOCK {
		t.Fatalf("third pull errno = %s, want EWOULDBLOCK once the ring is drained", errno)
	}
}

func TestPushByteRearmsNotEmptyAfterFullDrain(t *testing.T) {
	out := &fakeSender{}
	m := New(1, nil, out, fakeLogger{})
	m.Receive(&core.Message{Opcode: core.OpSetIoctl, IoctlCode: constants.SiocConsumer, IoctlParam: 9})
	m.PushByte('a')
	provider := out.sent[0].Provider
	provider()
	provider() // drains to empty, clears notEmptyPosted

	m.PushByte('b')
	if len(out.sent) != 2 {
		t.Fatalf("expected a second NOT_EMPTY after the ring re-fills, got %d messages", len(out.sent))
	}
}

func TestConsumerSwitchInvalidatesStalePullFunction(t *testing.T) {
	out := &fakeSender{}
	m := New(1, nil, out, fakeLogger{})
	m.Receive(&core.Message{Opcode: core.OpSetIoctl, IoctlCode: constants.SiocConsumer, IoctlParam: 9})
	m.PushByte('a')
	stale := out.sent[0].Provider

	m.Receive(&core.Message{Opcode: core.OpSetIoctl, IoctlCode: constants.SiocConsumer, IoctlParam: 10})

	if _, errno := stale(); errno != core.EWOULDBLOCK {
		t.Error("a pull function from the old consumer should report EWOULDBLOCK forever after a switch")
	}
}

func TestSetIoctlBaudRateWithoutDeviceIsENOSYS(t *testing.T) {
	m := New(1, nil, &fakeSender{}, fakeLogger{})
	errno := m.Receive(&core.Message{Opcode: core.OpSetIoctl, IoctlCode: constants.SiocBaudRate, IoctlParam: 9600})
	if errno != core.ENOSYS {
		t.Errorf("expected ENOSYS with no backing device, got %s", errno)
	}
}
