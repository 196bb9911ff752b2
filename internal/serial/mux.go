// Package serial implements the NOT_EMPTY character-stream mux (spec
// §4.6): a byte ring fed by the UART, a single registered consumer
// task, and the pull-iterator protocol that hands that consumer a
// lazy, non-blocking read function rather than pushing bytes at it.
// Grounded on spec.md §4.6 directly; the ring/consumer-switch shape has
// no direct teacher analogue, so it follows the same "small struct,
// mutex-protected state, Task entry points" texture internal/bus and
// internal/clock already establish.
package serial

import (
	"sync"

	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
)

// Device is the UART's hardware side: the output half of the line, and
// the ability to reconfigure its baud rate (spec §4.6's
// SET_IOCTL(SIOC_BAUDRATE, ...)). The input half arrives out-of-band,
// through PushByte, so the read loop can run on its own goroutine
// without blocking the dispatch loop.
type Device interface {
	Write(data []byte) (int, core.Errno)
	SetBaudRate(bps int) core.Errno
}

// Mux is the serial task (spec §4.6): it owns the byte ring, the
// current consumer, and the UART device.
type Mux struct {
	id  core.TaskID
	out interfaces.Sender
	log interfaces.Logger
	dev Device

	mu             sync.Mutex
	ring           []byte
	head, tail     int
	count          int
	consumer       core.TaskID
	generation     uint64
	notEmptyPosted bool
}

// New builds a Mux task with the given TaskID, driving dev (nil is
// valid for unit tests that only exercise ring/consumer logic).
func New(id core.TaskID, dev Device, out interfaces.Sender, log interfaces.Logger) *Mux {
	return &Mux{id: id, dev: dev, out: out, log: log, ring: make([]byte, constants.SerialRingCapacity)}
}

// ID implements task.Task.
func (m *Mux) ID() core.TaskID { return m.id }

// Receive implements task.Task: INIT is a no-op (the UART is opened
// during the static sysinit Configure phase, before any task is
// reachable), SET_IOCTL handles SIOC_CONSUMER and SIOC_BAUDRATE.
func (m *Mux) Receive(msg *core.Message) core.Errno {
	switch msg.Opcode {
	case core.OpInit:
		return core.EOK
	case core.OpSetIoctl:
		return m.setIoctl(msg)
	default:
		return core.ENOMSG
	}
}

func (m *Mux) setIoctl(msg *core.Message) core.Errno {
	switch msg.IoctlCode {
	case constants.SiocConsumer:
		m.mu.Lock()
		m.consumer = core.TaskID(msg.IoctlParam)
		m.head, m.tail, m.count = 0, 0, 0
		m.generation++ // invalidates any Provider closure still held by the old consumer
		m.notEmptyPosted = false
		m.mu.Unlock()
		return core.EOK
	case constants.SiocBaudRate:
		if m.dev == nil {
			return core.ENOSYS
		}
		return m.dev.SetBaudRate(int(msg.IoctlParam))
	default:
		return core.ENOSYS
	}
}

// Write implements secretary.Writer/secretary.Sink for the line's
// output side (OSTREAM, Console's echo).
func (m *Mux) Write(data []byte) (int, core.Errno) {
	if m.dev == nil {
		return 0, core.ENOSYS
	}
	return m.dev.Write(data)
}

// PushByte is the UART read loop's entry point: on an empty→non-empty
// transition it posts NOT_EMPTY to the registered consumer, carrying a
// pull function bound to the ring's current generation (spec §4.6:
// "When the buffer transitions from empty to non-empty, the producer
// posts NOT_EMPTY... at most one NOT_EMPTY is in flight to a given
// consumer").
func (m *Mux) PushByte(b byte) {
	m.mu.Lock()
	if m.count >= len(m.ring) {
		m.mu.Unlock()
		m.log.Warn("serial ring overflow, byte dropped")
		return
	}
	wasEmpty := m.count == 0
	m.ring[m.tail] = b
	m.tail = (m.tail + 1) % len(m.ring)
	m.count++

	consumer := m.consumer
	gen := m.generation
	notify := wasEmpty && !m.notEmptyPosted && consumer != 0
	if notify {
		m.notEmptyPosted = true
	}
	m.mu.Unlock()

	if notify {
		m.out.Send(core.Message{Sender: m.id, Receiver: consumer, Opcode: core.OpNotEmpty, Provider: m.pull(gen)})
	}
}

// pull returns a core.CharProvider bound to generation gen: once the
// consumer switches (setIoctl bumps the generation), any Provider a
// prior consumer is still holding reports EWOULDBLOCK forever, matching
// spec §4.6's "stale pointers are invalidated on switch."
func (m *Mux) pull(gen uint64) core.CharProvider {
	return func() (byte, core.Errno) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation || m.count == 0 {
			m.notEmptyPosted = false
			return 0, core.EWOULDBLOCK
		}
		b := m.ring[m.head]
		m.head = (m.head + 1) % len(m.ring)
		m.count--
		return b, core.EOK
	}
}
