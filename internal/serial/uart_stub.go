//go:build !linux

package serial

import "github.com/meshwire/noded/internal/core"

// UART is a placeholder on non-Linux builds: the node's target is
// always Linux, so there is no real termios device to open here.
type UART struct{}

// OpenUART always fails off Linux.
func OpenUART(path string, initialBaud int) (*UART, error) {
	return nil, core.NewError("OPEN_UART", 0, core.ENOSYS)
}

func (u *UART) Fd() int { return -1 }

func (u *UART) SetBaudRate(bps int) core.Errno { return core.ENOSYS }

func (u *UART) Write(data []byte) (int, core.Errno) { return 0, core.ENOSYS }

func (u *UART) Close() error { return nil }

// ReadLoop returns immediately off Linux.
func ReadLoop(u *UART, mux *Mux) {}
