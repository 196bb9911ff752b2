package secretary

import (
	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
)

// Writer is the local serial line's output side, satisfied by the
// serial mux's UART writer.
type Writer interface {
	Write(data []byte) (int, core.Errno)
}

// Console is the simplest secretary (spec §4.5): it is not a
// request/reply adapter over the bus at all, just a NOT_EMPTY consumer
// that echoes whatever the serial mux hands it back out the same
// writer — the connective tissue tasks/console demos sitting on top of.
// It does not embed Secretary, since it has none of the
// INIT/REPLY_INFO/REPLY_RESULT entry points that pattern provides.
type Console struct {
	id     core.TaskID
	muxID  core.TaskID
	writer Writer
	out    interfaces.Sender
	log    interfaces.Logger
}

// NewConsole builds a Console task that registers itself as the serial
// mux's consumer on INIT and echoes every received byte to writer.
func NewConsole(id, muxID core.TaskID, writer Writer, out interfaces.Sender, log interfaces.Logger) *Console {
	return &Console{id: id, muxID: muxID, writer: writer, out: out, log: log}
}

// ID implements task.Task.
func (c *Console) ID() core.TaskID { return c.id }

// Receive implements task.Task: INIT is the only message Console
// accepts through its general entry point; the scheduler routes
// NOT_EMPTY to Consume instead (spec §4.2's consume() helper).
func (c *Console) Receive(msg *core.Message) core.Errno {
	switch msg.Opcode {
	case core.OpInit:
		c.out.Send(core.Message{Sender: c.id, Receiver: c.muxID, Opcode: core.OpSetIoctl, IoctlCode: constants.SiocConsumer, IoctlParam: int64(c.id)})
		return core.EOK
	default:
		return core.ENOMSG
	}
}

// Consume implements task.Consumer: pull bytes until EWOULDBLOCK,
// echoing each to the writer (spec §4.6: "the consumer drains by
// repeatedly calling read_one until EWOULDBLOCK").
func (c *Console) Consume(provider core.CharProvider) core.Errno {
	for {
		b, errno := provider()
		if errno == core.EWOULDBLOCK {
			return core.EOK
		}
		if errno != core.EOK {
			c.log.Warn("console NOT_EMPTY pull failed: %s", errno)
			return errno
		}
		if _, werr := c.writer.Write([]byte{b}); werr != core.EOK {
			c.log.Warn("console echo write failed: %s", werr)
		}
	}
}
