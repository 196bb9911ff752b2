//go:build linux

package serial

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/meshwire/noded/internal/core"
)

// baudConstants maps the enumerated SupportedBaudRates (spec §4.6) to
// the termios speed constants Linux expects in c_cflag's CBAUD field.
var baudConstants = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// UART is a real Linux serial device (e.g. /dev/ttyUSB0), configured
// 8-N-1 and driven directly via golang.org/x/sys/unix's termios ioctls
// rather than pulling in Daedaluz-goserial's own fdev wrapper (that
// package's extra abstraction — multiple open modes, its own ioctl
// helper — has no other footprint in this node; the termios *approach*
// is what's grounded on it, not the dependency).
type UART struct {
	mu sync.Mutex
	fd int
}

// OpenUART opens path and configures it 8-N-1 at the given initial baud
// rate (spec §4.6).
func OpenUART(path string, initialBaud int) (*UART, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, core.WrapError("OPEN_UART", 0, err)
	}
	u := &UART{fd: fd}
	if errno := u.SetBaudRate(initialBaud); errno != core.EOK {
		unix.Close(fd)
		return nil, errno
	}
	return u, nil
}

// Fd returns the underlying file descriptor, for a caller's read loop
// (ReadLoop below, or a reactor ArmRead registration).
func (u *UART) Fd() int { return u.fd }

// SetBaudRate implements Device: reconfigures framing to 8-N-1 at bps,
// one of constants.SupportedBaudRates.
func (u *UART) SetBaudRate(bps int) core.Errno {
	speed, ok := baudConstants[bps]
	if !ok {
		return core.EINVAL
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	t, err := unix.IoctlGetTermios(u.fd, unix.TCGETS)
	if err != nil {
		return core.WrapError("GET_TERMIOS", 0, err).Code
	}
	t.Cflag &^= unix.CBAUD | unix.CSIZE | unix.PARENB | unix.CSTOPB
	t.Cflag |= speed | unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Iflag = 0
	t.Oflag = 0
	t.Lflag = 0
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(u.fd, unix.TCSETS, t); err != nil {
		return core.WrapError("SET_TERMIOS", 0, err).Code
	}
	return core.EOK
}

// Write implements Device.
func (u *UART) Write(data []byte) (int, core.Errno) {
	n, err := unix.Write(u.fd, data)
	if err != nil {
		return n, core.WrapError("WRITE_UART", 0, err).Code
	}
	return n, core.EOK
}

// Close releases the underlying file descriptor.
func (u *UART) Close() error { return unix.Close(u.fd) }

// ReadLoop blocks reading single bytes from the UART and pushes each
// into mux, until the device is closed. It is meant to run on its own
// goroutine — the only code in this package that ever blocks, since
// the dispatch loop itself must not (spec §9).
func ReadLoop(u *UART, mux *Mux) {
	buf := make([]byte, 1)
	for {
		n, err := unix.Read(u.fd, buf)
		if err != nil || n == 0 {
			return
		}
		mux.PushByte(buf[0])
	}
}
