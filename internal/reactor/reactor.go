// Package reactor multiplexes one completion-driven event source onto
// hardware-adjacent inputs: the clock's overflow timer (ArmTimeout) and
// file-descriptor readability watches (ArmRead). It stands in for the real
// microcontroller's interrupt controller (spec §9). Grounded on the
// teacher's internal/uring package: a narrow Ring interface with a
// Linux implementation backed by io_uring and a build-tag stub for
// everything else.
package reactor

// Ring is the event-loop abstraction the node drives. Each Arm* call
// submits one watch; fire is invoked exactly once per completion, from
// the Ring's own goroutine — callers must treat fire as ISR context and
// only post messages from it, never touch task state directly (spec §9).
type Ring interface {
	// ArmTimeout schedules fire to run once after nanos nanoseconds. Used by
	// internal/clock's Counter.
	ArmTimeout(nanos int64, fire func())

	// ArmRead watches fd for readability and invokes fire (with no
	// guarantee data has actually been drained) whenever it becomes
	// readable. Node does not call it: the serial line is read by
	// serial.ReadLoop on its own goroutine.
	ArmRead(fd int, fire func())

	// Disarm cancels a previously-armed watch for fd, if any.
	Disarm(fd int)

	// Run drives the completion loop until Close is called.
	Run()

	// Close stops Run and releases the ring.
	Close() error
}

// Config mirrors the teacher's uring.Config: a fixed submission/
// completion queue depth, sized generously since the node's total
// concurrent watches (one timer, one serial fd, one I2C fd) is small
// and fixed at build time.
type Config struct {
	Entries uint32
}

// DefaultConfig is sized for the node's fixed watch set.
var DefaultConfig = Config{Entries: 16}
