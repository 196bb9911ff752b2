//go:build !linux

package reactor

import (
	"time"
)

// stubRing backs non-Linux builds (tests, development off-target) with
// a time.AfterFunc based timeout and no fd polling capability — the
// node's target is always a Linux host with real I2C/serial character
// devices, so ArmRead is a documented no-op here, paralleling the
// teacher's iouring_stub.go returning an explicit "not available"
// rather than silently degrading.
type stubRing struct {
	timers chan func()
	done   chan struct{}
}

// New returns the portable stub Ring.
func New(cfg Config) (Ring, error) {
	return &stubRing{timers: make(chan func(), 64), done: make(chan struct{})}, nil
}

func (r *stubRing) ArmTimeout(nanos int64, fire func()) {
	time.AfterFunc(time.Duration(nanos), func() {
		select {
		case r.timers <- fire:
		case <-r.done:
		}
	})
}

func (r *stubRing) ArmRead(fd int, fire func()) {
	// Not supported off Linux; real fd polling requires io_uring.
}

func (r *stubRing) Disarm(fd int) {}

func (r *stubRing) Run() {
	for {
		select {
		case fire := <-r.timers:
			fire()
		case <-r.done:
			return
		}
	}
}

func (r *stubRing) Close() error {
	close(r.done)
	return nil
}
