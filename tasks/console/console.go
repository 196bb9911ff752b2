// Package console is the demo task secretary.Console's own doc comment
// points to: a thin wrapper that writes a one-line startup banner out
// the serial line before the console starts echoing, showing a
// concrete node wiring a NOT_EMPTY consumer end to end.
package console

import (
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/secretary"
)

// Greeter embeds secretary.Console and additionally implements
// task.Initializer: Init runs once during the sysinit cascade, writing
// Banner before Console's own INIT registers it as the mux's consumer.
type Greeter struct {
	*secretary.Console

	writer secretary.Writer
	Banner string
}

// New builds a Greeter task wrapping a Console over writer, printing
// banner once during startup.
func New(id, muxID core.TaskID, writer secretary.Writer, out interfaces.Sender, log interfaces.Logger, banner string) *Greeter {
	return &Greeter{
		Console: secretary.NewConsole(id, muxID, writer, out, log),
		writer:  writer,
		Banner:  banner,
	}
}

// Init implements task.Initializer.
func (g *Greeter) Init() core.Errno {
	if g.Banner == "" {
		return core.EOK
	}
	_, errno := g.writer.Write([]byte(g.Banner))
	return errno
}
