package bus

// Outcome is the raw result of one master transaction attempt, before
// the driver's retry/back-off table (spec §4.4) classifies it into a
// final Errno reply. Carried on Message.IoctlCode since the final
// Errno field is reserved for the job's eventual reply result.
type Outcome int32

const (
	OutcomeOK Outcome = iota
	OutcomeSlaveNack     // MT_SLA_NACK: addressed peer silent
	OutcomeDataNack      // MT_DATA_NACK: peer rejected a byte
	OutcomeArbLost       // MT_ARB_LOST: lost bus arbitration
	OutcomeBusBusy       // bus not quiescent at STARTING
	OutcomeIllegalStart  // illegal start/stop condition
)

// MasterDone is invoked exactly once per StartMaster call, reporting
// how many bytes of Rx were filled (for an MR leg) alongside the
// Outcome. Implementations must post this as a message (via
// interfaces.Sender), never call back into driver logic directly —
// the reactor's usual "ISR only enqueues" rule.
type MasterDone func(outcome Outcome, rxCount int)

// Transport is the two-wire bus hardware abstraction the driver drives
// (spec §4.4's state machine, minus the parts that are pure
// list/pool bookkeeping). i2c_linux.go implements it over
// /dev/i2c-N; a fake implementation backs unit tests.
type Transport interface {
	// Quiescent reports one instantaneous bus-idle sample. The driver
	// polls this constants.QuiescentChecks times before starting a
	// master transaction (spec §4.4).
	Quiescent() bool

	// DisableSlaveAck / EnableSlaveAck bracket a master transaction:
	// mastering and slaving are mutually exclusive (spec §4.4).
	DisableSlaveAck()
	EnableSlaveAck()

	// StartMaster begins a master transaction to peer, sending mcmd and
	// tx and (if rx is non-empty) filling rx, then
	// reports the outcome via done — asynchronously, off the calling
	// goroutine if the real transaction takes real wall-clock time.
	StartMaster(peer byte, mcmd byte, tx, rx []byte, done MasterDone)
}
