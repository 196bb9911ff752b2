package secretary

import (
	"testing"

	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
)

func TestConsoleInitRegistersWithMux(t *testing.T) {
	out := &fakeSender{}
	sink := &fakeSink{}
	c := NewConsole(5, 3, sink, out, fakeLogger{})

	if errno := c.Receive(&core.Message{Opcode: core.OpInit}); errno != core.EOK {
		t.Fatalf("INIT returned %s, want EOK", errno)
	}
	if len(out.sent) != 1 {
		t.Fatalf("expected one SET_IOCTL posted, got %+v", out.sent)
	}
	msg := out.sent[0]
	if msg.Opcode != core.OpSetIoctl || msg.IoctlCode != constants.SiocConsumer || msg.IoctlParam != 5 {
		t.Errorf("expected SET_IOCTL(SIOC_CONSUMER, 5), got %+v", msg)
	}
	if msg.Receiver != 3 {
		t.Errorf("expected the ioctl to target the mux task, got receiver %d", msg.Receiver)
	}
}

func TestConsoleConsumeEchoesUntilEWOULDBLOCK(t *testing.T) {
	sink := &fakeSink{}
	c := NewConsole(5, 3, sink, &fakeSender{}, fakeLogger{})

	bytes := []byte("hi")
	i := 0
	provider := func() (byte, core.Errno) {
		if i >= len(bytes) {
			return 0, core.EWOULDBLOCK
		}
		b := bytes[i]
		i++
		return b, core.EOK
	}

	if errno := c.Consume(provider); errno != core.EOK {
		t.Fatalf("Consume returned %s, want EOK", errno)
	}
	if string(sink.written) != "hi" {
		t.Errorf("expected both bytes echoed, got %q", sink.written)
	}
}

func TestConsoleReceiveRejectsUnknownOpcodes(t *testing.T) {
	c := NewConsole(5, 3, &fakeSink{}, &fakeSender{}, fakeLogger{})
	if errno := c.Receive(&core.Message{Opcode: core.OpStart}); errno != core.ENOMSG {
		t.Errorf("expected ENOMSG for an opcode Console doesn't handle, got %s", errno)
	}
}
