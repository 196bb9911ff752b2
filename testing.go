package noded

import (
	"sync"

	"github.com/meshwire/noded/internal/bus"
	"github.com/meshwire/noded/internal/clock"
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/serial"
)

// FakeClockHW is an in-memory clock.Counter: Arm records the callback
// instead of scheduling it against real wall-clock time, and Fire
// invokes whatever is currently armed, letting a test drive the clock
// deterministically. Modeled on the teacher's MockBackend: a small
// mutex-protected struct tracking call counts for test assertions.
type FakeClockHW struct {
	mu        sync.Mutex
	armed     func()
	armCalls  int
	stopCalls int
	lastTicks int64
}

// NewFakeClockHW returns an idle FakeClockHW.
func NewFakeClockHW() *FakeClockHW { return &FakeClockHW{} }

// Arm implements clock.Counter.
func (f *FakeClockHW) Arm(ticks int64, fire func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armCalls++
	f.lastTicks = ticks
	f.armed = fire
}

// Stop implements clock.Counter.
func (f *FakeClockHW) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.armed = nil
}

// Fire invokes the currently armed callback, if any, simulating the
// hardware counter rolling over.
func (f *FakeClockHW) Fire() {
	f.mu.Lock()
	fire := f.armed
	f.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// ArmCalls reports how many times Arm has been called.
func (f *FakeClockHW) ArmCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armCalls
}

// StopCalls reports how many times Stop has been called.
func (f *FakeClockHW) StopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

var _ clock.Counter = (*FakeClockHW)(nil)

// FakeSerialDevice is an in-memory serial.Device: Write appends to an
// in-memory buffer instead of touching a real UART, and SetBaudRate
// records the requested rate rather than reprogramming termios.
type FakeSerialDevice struct {
	mu          sync.Mutex
	written     []byte
	baud        int
	failWrite   core.Errno
	failSetBaud core.Errno
}

// NewFakeSerialDevice returns an empty FakeSerialDevice.
func NewFakeSerialDevice() *FakeSerialDevice { return &FakeSerialDevice{} }

// Write implements serial.Device.
func (f *FakeSerialDevice) Write(data []byte) (int, core.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != core.EOK {
		return 0, f.failWrite
	}
	f.written = append(f.written, data...)
	return len(data), core.EOK
}

// SetBaudRate implements serial.Device.
func (f *FakeSerialDevice) SetBaudRate(bps int) core.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetBaud != core.EOK {
		return f.failSetBaud
	}
	f.baud = bps
	return core.EOK
}

// Written returns a copy of everything written so far.
func (f *FakeSerialDevice) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.written))
	copy(out, f.written)
	return out
}

// Baud returns the most recently configured baud rate.
func (f *FakeSerialDevice) Baud() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baud
}

// FailNextWrite makes the next Write call (and every one after it)
// report errno instead of succeeding.
func (f *FakeSerialDevice) FailNextWrite(errno core.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = errno
}

var _ serial.Device = (*FakeSerialDevice)(nil)

// FakeBusTransport is an in-memory bus.Transport: StartMaster reports a
// pre-programmed Outcome synchronously (on the caller's own goroutine,
// unlike the real i2c_linux.go transport) rather than touching
// /dev/i2c-N, letting unit tests drive the bus Driver's retry/back-off
// state machine without real hardware.
type FakeBusTransport struct {
	mu        sync.Mutex
	quiescent bool
	mastering bool
	outcome   bus.Outcome
	rxData    []byte
	started   []fakeMasterCall
}

type fakeMasterCall struct {
	peer byte
	mcmd byte
	tx   []byte
}

// NewFakeBusTransport returns a quiescent FakeBusTransport that reports
// OutcomeOK on every master transaction until told otherwise.
func NewFakeBusTransport() *FakeBusTransport {
	return &FakeBusTransport{quiescent: true, outcome: bus.OutcomeOK}
}

// Quiescent implements bus.Transport.
func (f *FakeBusTransport) Quiescent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quiescent
}

// SetQuiescent controls the value Quiescent reports.
func (f *FakeBusTransport) SetQuiescent(q bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quiescent = q
}

// DisableSlaveAck implements bus.Transport.
func (f *FakeBusTransport) DisableSlaveAck() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mastering = true
}

// EnableSlaveAck implements bus.Transport.
func (f *FakeBusTransport) EnableSlaveAck() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mastering = false
}

// SetOutcome configures the Outcome (and, for an MR leg, the bytes)
// the next StartMaster call reports.
func (f *FakeBusTransport) SetOutcome(outcome bus.Outcome, rxData []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcome = outcome
	f.rxData = rxData
}

// StartMaster implements bus.Transport, reporting the configured
// Outcome synchronously.
func (f *FakeBusTransport) StartMaster(peer byte, mcmd byte, tx, rx []byte, done bus.MasterDone) {
	f.mu.Lock()
	f.started = append(f.started, fakeMasterCall{peer: peer, mcmd: mcmd, tx: append([]byte{}, tx...)})
	outcome := f.outcome
	n := copy(rx, f.rxData)
	f.mu.Unlock()
	done(outcome, n)
}

// Calls returns how many times StartMaster has been invoked.
func (f *FakeBusTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

var _ bus.Transport = (*FakeBusTransport)(nil)
