// Package sysinit implements the two-phase startup cascade (spec §6,
// "Startup wire behavior"). Configure opens the node's backing
// hardware without posting any message into the fabric, the host
// analog of the teacher's pre-ADD_DEV controller setup in
// CreateAndServe; Cascade then walks a build-time ordered task list,
// delivering INIT to each in turn and polling for acknowledgement
// before moving on, the same shape as the teacher's waitLive polling
// loop in backend.go generalized from "wait for the block device to
// appear" to "wait for this task to register."
package sysinit

import (
	"fmt"
	"time"

	"github.com/meshwire/noded/internal/bus"
	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/mq"
	"github.com/meshwire/noded/internal/serial"
	"github.com/meshwire/noded/internal/task"
)

// HardwareConfig names the physical devices a live node opens during
// Configure: the serial line and the I2C adapter. Either path may be
// left empty for a node built with fakes in tests.
type HardwareConfig struct {
	SerialPath string
	SerialBaud int
	I2CPath    string
}

// Hardware holds the devices Configure opened, for node.go to wire
// into the Mux and bus Driver tasks it builds afterward.
type Hardware struct {
	UART *serial.UART
	I2C  *bus.I2CTransport
}

// Close releases every device Configure opened, in case startup fails
// partway through task construction.
func (h *Hardware) Close() {
	if h == nil {
		return
	}
	if h.UART != nil {
		h.UART.Close()
	}
	if h.I2C != nil {
		h.I2C.Close()
	}
}

// Configure runs the static config_*-equivalent setup (spec §6): opens
// the serial device and the I2C character device. No message is
// enqueued here — the task dispatch table does not exist yet, only
// node.go's constructors consume the result.
func Configure(cfg HardwareConfig) (*Hardware, error) {
	hw := &Hardware{}

	uart, err := serial.OpenUART(cfg.SerialPath, cfg.SerialBaud)
	if err != nil {
		return nil, fmt.Errorf("sysinit: open serial %s: %w", cfg.SerialPath, err)
	}
	hw.UART = uart

	i2c, err := bus.OpenI2CTransport(cfg.I2CPath)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("sysinit: open i2c %s: %w", cfg.I2CPath, err)
	}
	hw.I2C = i2c

	return hw, nil
}

// Cascade runs the INIT cascade: for each TaskID in initTable, in
// order, it calls Receive(INIT) directly — not through the queue, since
// this runs before Scheduler.Run starts and is the one place sysinit
// is allowed to wait synchronously for a task to become ready (spec
// §4.7) — retrying at constants.InitPollInterval until it acks EOK or
// constants.InitAckTimeout elapses. After each entry acks, the
// scheduler is drained with RunUntilEmpty so any message the INIT
// handler posted (a secretary's pool-registration JOB, say) settles
// before the next entry's INIT runs, keeping registration order
// predictable across the whole cascade.
func Cascade(sched *mq.Scheduler, tasks map[core.TaskID]task.Task, initTable []core.TaskID) error {
	for _, id := range initTable {
		t, ok := tasks[id]
		if !ok {
			return fmt.Errorf("sysinit: inittab entry %d has no dispatch-table task", id)
		}

		if initer, ok := t.(task.Initializer); ok {
			if errno := initer.Init(); errno != core.EOK {
				return fmt.Errorf("sysinit: task %d Init: %s", id, errno)
			}
		}

		deadline := time.Now().Add(constants.InitAckTimeout)
		var errno core.Errno
		for {
			errno = t.Receive(&core.Message{Sender: id, Receiver: id, Opcode: core.OpInit})
			if errno == core.EOK {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("sysinit: task %d did not ack INIT (last errno %s)", id, errno)
			}
			time.Sleep(constants.InitPollInterval)
		}

		sched.RunUntilEmpty()
	}
	return nil
}
