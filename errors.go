// Package noded implements the two-wire instrumentation network's
// micro-kernel: a single-threaded, message-passing scheduler hosting a
// fixed set of cooperating state-machine tasks.
package noded

import "github.com/meshwire/noded/internal/core"

// The Errno taxonomy and structured Error type live in internal/core
// alongside Message so the bus, clock and secretary packages can
// construct and classify errors without importing the root package.
type (
	Errno = core.Errno
	Error = core.Error
)

const (
	EOK          = core.EOK
	EAGAIN       = core.EAGAIN
	ENOMEM       = core.ENOMEM
	EACCES       = core.EACCES
	EBUSY        = core.EBUSY
	EINVAL       = core.EINVAL
	ENODEV       = core.ENODEV
	ESRCH        = core.ESRCH
	EBADE        = core.EBADE
	EBADRQC      = core.EBADRQC
	ECONNABORTED = core.ECONNABORTED
	ECONNREFUSED = core.ECONNREFUSED
	EHOSTDOWN    = core.EHOSTDOWN
	ENOMSG       = core.ENOMSG
	EWOULDBLOCK  = core.EWOULDBLOCK
	ENOSYS       = core.ENOSYS
	E2BIG        = core.E2BIG
	ENXIO        = core.ENXIO
)

// NewError builds a structured Error with no wrapped cause.
func NewError(op string, task TaskID, code Errno) *Error { return core.NewError(op, task, code) }

// WrapError classifies an arbitrary error into the Errno taxonomy and
// wraps it for Unwrap/Is support.
func WrapError(op string, task TaskID, inner error) *Error { return core.WrapError(op, task, inner) }

// IsCode reports whether err classifies as the given Errno.
func IsCode(err error, code Errno) bool { return core.IsCode(err, code) }
