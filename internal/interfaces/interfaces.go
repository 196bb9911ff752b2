// Package interfaces provides internal interface definitions shared
// across the node's packages, separate from any single package's
// concrete types so that, e.g., internal/clock and internal/bus can
// depend on "a thing that accepts messages" without importing
// internal/mq (and internal/mq need not import them back). Grounded
// directly on the teacher's internal/interfaces package, which exists
// for the identical reason ("separate from the main package to avoid
// circular imports between the main package and internal packages").
package interfaces

import "github.com/meshwire/noded/internal/core"

// Sender is satisfied by *mq.Scheduler. Every service that posts
// messages back into the fabric (the clock's ALARM, the bus driver's
// *_COMPLETE, a secretary's reply) depends on this instead of mq
// directly.
type Sender interface {
	Send(msg core.Message)
}

// Recorder is the slice of noded.Metrics any one service needs to
// update. Each service only takes the handful of Record* methods it
// actually calls.
type Recorder interface {
	RecordDispatch()
	RecordLoss()
	RecordQueueDepth(depth uint32)
}

// Logger is the minimal surface every service logs through — satisfied
// by *logging.Logger. Declared here, rather than importing
// internal/logging's concrete type everywhere, mirrors the teacher's
// own internal/interfaces.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
