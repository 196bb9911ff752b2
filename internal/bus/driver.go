// Package bus implements the two-wire (TWI/I2C) bus driver (spec
// §4.4): multi-master arbitration, per-node secretary-pool dispatch on
// a leading service byte, retry and back-off, and slave-transmit
// callback. Grounded on the teacher's internal/ctrl package, which
// plays the analogous "state machine task wrapping a raw device/ioctl
// transport, with retry/back-off bookkeeping" role for ublk's control
// device.
package bus

import (
	"sync"
	"time"

	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/wire"
)

// state is the driver-internal master-side state machine (spec §4.4):
// IDLE → STARTING (pre-transmission bus-quiet check, or back-off
// between retries) → MASTERING (transaction in flight) → IDLE.
// Slaving is not modeled as an explicit state here: DisableSlaveAck /
// EnableSlaveAck bracket MASTERING directly, so the driver is always
// implicitly "slaving-capable" except during that window.
type state int

const (
	stateIdle state = iota
	stateStarting
	stateMastering
)

// Driver is the bus task (spec §4.4's "public contract"): JOB, CANCEL,
// and the internal completions MASTER_COMPLETE / SLAVE_COMPLETE /
// ALARM.
type Driver struct {
	id        core.TaskID
	clockID   core.TaskID
	localAddr byte
	transport Transport
	pool      *pool
	out       interfaces.Sender
	log       interfaces.Logger
	metrics   interfaces.Recorder

	st        state
	headJobs  []*core.Info // FIFO of active master jobs

	// matching is the listener DeliverSlaveRequest has matched against
	// the pool but onSlaveComplete has not yet finished with — the
	// window pool.cancel can't see because the listener is already gone
	// from p.listeners by the time it exists. Guarded by its own mutex,
	// not the dispatch loop, since DeliverSlaveRequest runs on the
	// transport's own goroutine (see its doc comment).
	matchingMu sync.Mutex
	matching   *core.Info
}

// New builds a bus Driver with the given TaskID, addressed as
// localAddr on the bus, sending SET_ALARM/CANCEL to clockID for
// back-off, and driving transport.
func New(id, clockID core.TaskID, localAddr byte, transport Transport, out interfaces.Sender, log interfaces.Logger, metrics interfaces.Recorder) *Driver {
	return &Driver{
		id: id, clockID: clockID, localAddr: localAddr,
		transport: transport, pool: newPool(), out: out, log: log, metrics: metrics,
	}
}

// ID implements task.Task.
func (d *Driver) ID() core.TaskID { return d.id }

// Receive implements task.Task.
func (d *Driver) Receive(msg *core.Message) core.Errno {
	switch msg.Opcode {
	case core.OpInit:
		return core.EOK
	case core.OpJob:
		return d.job(msg.Sender, msg.JobInfo)
	case core.OpCancel:
		return d.cancel(msg.JobInfo)
	case core.OpMasterComplete:
		d.onMasterComplete(msg.JobInfo, Outcome(msg.IoctlCode))
		return core.EOK
	case core.OpSlaveComplete:
		d.onSlaveComplete(msg.JobInfo)
		return core.EOK
	case core.OpAlarm:
		return d.onAlarm(msg.JobInfo)
	default:
		return core.ENOMSG
	}
}

// job implements JOB(info) (spec §4.4): a master job (any mode with
// ModeMT) is enqueued on the active FIFO; a pure listener job (no
// ModeMT) registers immediately in the slave pool. A compound MT|SR
// job starts as a master job and migrates to the pool only once its
// master half completes successfully.
func (d *Driver) job(sender core.TaskID, info *core.Info) core.Errno {
	info.ReplyTo = sender
	info.Attempt = 0

	if info.Mode.Has(core.ModeMT) {
		if info.Peer == d.localAddr {
			d.loopback(info)
			return core.EOK
		}
		d.headJobs = append(d.headJobs, info)
		d.tryAdvance()
		return core.EOK
	}

	d.pool.register(info)
	return core.EOK
}

// cancel implements CANCEL(info) (spec §4.4 cancellation semantics). A
// head job waiting in STARTING (quiescent back-off, or parked between
// NACK/arbitration/bus-busy retries) can still be pulled; one already
// MASTERING is physically on the wire and cannot be interrupted.
func (d *Driver) cancel(info *core.Info) core.Errno {
	if len(d.headJobs) > 0 && d.headJobs[0] == info {
		if d.st == stateMastering {
			return core.EBUSY
		}
		d.headJobs = d.headJobs[1:]
		return core.EOK
	}
	for i, j := range d.headJobs {
		if j == info {
			d.headJobs = append(d.headJobs[:i], d.headJobs[i+1:]...)
			return core.EOK
		}
	}

	d.matchingMu.Lock()
	inFlight := d.matching == info
	d.matchingMu.Unlock()
	if inFlight {
		return core.EBUSY
	}

	return d.pool.cancel(info)
}

// tryAdvance attempts to start the head-of-FIFO master job if the
// driver is idle and a job is queued (spec §4.4: "Master jobs are
// dequeued strictly in enqueue order").
func (d *Driver) tryAdvance() {
	if d.st != stateIdle || len(d.headJobs) == 0 {
		return
	}
	job := d.headJobs[0]

	for i := 0; i < constants.QuiescentChecks; i++ {
		if !d.transport.Quiescent() {
			d.backOffBusBusy(job)
			return
		}
	}

	d.st = stateMastering
	d.transport.DisableSlaveAck()
	d.transport.StartMaster(job.Peer, job.MCmd, job.Tx, job.Rx, func(outcome Outcome, rxCount int) {
		d.out.Send(core.Message{
			Sender: d.id, Receiver: d.id, Opcode: core.OpMasterComplete,
			IoctlCode: int32(outcome), IoctlParam: int64(rxCount), JobInfo: job,
		})
	})
}

// backOffBusBusy handles "bus-busy at STARTING" (spec §4.4): retry
// after TransmitDelay up to MaxTransmitAttempts, then EHOSTDOWN.
func (d *Driver) backOffBusBusy(job *core.Info) {
	job.Attempt++
	if job.Attempt > constants.MaxTransmitAttempts {
		d.popHead()
		d.completeMaster(job, core.EHOSTDOWN)
		d.tryAdvance()
		return
	}
	d.st = stateStarting
	d.scheduleRetry(job, constants.TransmitDelay)
}

// onMasterComplete handles the MASTER_COMPLETE internal message (spec
// §4.4's retry/back-off table).
func (d *Driver) onMasterComplete(job *core.Info, outcome Outcome) {
	d.transport.EnableSlaveAck()
	d.st = stateIdle

	switch outcome {
	case OutcomeOK:
		d.popHead()
		if job.Mode.Has(core.ModeSR) {
			d.pool.register(job)
		} else {
			d.completeMaster(job, core.EOK)
		}
	case OutcomeSlaveNack:
		d.retryOrFail(job, constants.MaxNackRetries, constants.RetryDelay, core.ENODEV)
	case OutcomeDataNack:
		d.retryOrFail(job, constants.MaxNackRetries, constants.RetryDelay, core.EACCES)
	case OutcomeArbLost:
		// "retry after ARBITRATION_DELAY with no attempt count" — never
		// exhausts, so no job.Attempt bookkeeping here.
		d.st = stateStarting
		d.scheduleRetry(job, constants.ArbitrationDelay)
		return
	case OutcomeIllegalStart:
		d.popHead()
		d.completeMaster(job, core.ECONNREFUSED)
	default:
		d.popHead()
		d.completeMaster(job, core.ENXIO)
	}
	d.tryAdvance()
}

// retryOrFail implements the shared NACK retry/back-off shape: retry up
// to maxRetries times after delay, then fail with failCode.
func (d *Driver) retryOrFail(job *core.Info, maxRetries int, delay time.Duration, failCode core.Errno) {
	job.Attempt++
	if job.Attempt > maxRetries {
		d.popHead()
		d.completeMaster(job, failCode)
		return
	}
	d.st = stateStarting
	d.scheduleRetry(job, delay)
}

// onAlarm handles the back-off alarm's ALARM reply: the driver's only
// outstanding alarm is always for the current head-of-FIFO job, since
// master jobs are processed strictly one at a time (spec §4.4).
func (d *Driver) onAlarm(job *core.Info) core.Errno {
	if len(d.headJobs) == 0 || d.headJobs[0] != job {
		return core.ENOMSG
	}
	d.st = stateIdle
	d.tryAdvance()
	return core.EOK
}

func (d *Driver) scheduleRetry(job *core.Info, delay time.Duration) {
	d.out.Send(core.Message{
		Sender: d.id, Receiver: d.clockID, Opcode: core.OpSetAlarm,
		JobInfo: job, IoctlParam: delay.Milliseconds(),
	})
}

func (d *Driver) popHead() {
	if len(d.headJobs) > 0 {
		d.headJobs = d.headJobs[1:]
	}
}

func (d *Driver) completeMaster(job *core.Info, result core.Errno) {
	if result == core.EOK {
		d.metrics.RecordDispatch()
	}
	d.out.Send(core.Message{Sender: d.id, Receiver: job.ReplyTo, Opcode: core.OpReplyResult, Result: result, JobInfo: job})
}

// onSlaveComplete handles a matched (or unmatched) inbound slave
// transaction, as classified by the transport's own pool lookup (spec
// §4.4's two-phase dispatch). job is nil when neither phase matched —
// "NACKed with EBADRQC reported to the listener pool owner", which here
// means counted as a bus failure rather than forwarded, since there is
// no specific listener to notify.
func (d *Driver) onSlaveComplete(job *core.Info) {
	if job == nil {
		d.metrics.RecordLoss()
		d.log.Warn("slave transaction matched no listener")
		return
	}

	d.matchingMu.Lock()
	if d.matching == job {
		d.matching = nil
	}
	d.matchingMu.Unlock()

	d.out.Send(core.Message{Sender: d.id, Receiver: job.ReplyTo, Opcode: core.OpReplyInfo, Result: core.EOK, JobInfo: job})
}

// DeliverSlaveRequest is the entry point a Transport calls from its own
// goroutine when real I2C slave hardware observes an inbound
// transaction (fakeTransport in tests; a future
// i2c-slave-eeprom-backed listener on real hardware). The pool's own
// mutex (see pool.go) makes the match itself safe to run off the
// dispatch loop, but everything past the match — filling the matched
// listener's buffer and deciding what happens next — is task logic, so
// it is never run here: this only matches, copies the payload in, and
// posts SLAVE_COMPLETE, leaving onSlaveComplete to do the rest from the
// dispatch loop (spec §9's "ISR enqueues, never calls task logic").
func (d *Driver) DeliverSlaveRequest(peerAddr byte, prefix wire.CommandPrefix, payload []byte) bool {
	listener, ok := d.pool.match(prefix)
	if !ok {
		d.out.Send(core.Message{Sender: d.id, Receiver: d.id, Opcode: core.OpSlaveComplete, JobInfo: nil})
		return false
	}

	d.matchingMu.Lock()
	d.matching = listener
	d.matchingMu.Unlock()

	listener.Peer = peerAddr
	copy(listener.Rx, payload)
	d.out.Send(core.Message{Sender: d.id, Receiver: d.id, Opcode: core.OpSlaveComplete, JobInfo: listener})
	return true
}

// loopback implements "Master loopback" (spec §4.4): a master
// transaction addressed to the local node never touches the wire. It
// is resolved synchronously, within the same Receive call, against the
// pool.
func (d *Driver) loopback(job *core.Info) {
	prefix := wire.CommandPrefix{Service: job.MCmd}
	if len(job.Tx) >= wire.CommandPrefixLen {
		prefix = wire.DecodeCommandPrefix(job.Tx)
	}

	listener, ok := d.pool.match(prefix)
	if !ok {
		d.metrics.RecordLoss()
		d.completeMaster(job, core.EACCES)
		return
	}

	copy(listener.Rx, job.Tx)
	if job.Mode.Has(core.ModeMR) && listener.Mode.Has(core.ModeST) && listener.Handoff != nil {
		listener.Handoff(job.Rx)
	}

	d.out.Send(core.Message{Sender: d.id, Receiver: listener.ReplyTo, Opcode: core.OpReplyInfo, Result: core.EOK, JobInfo: listener})
	d.completeMaster(job, core.EOK)
}
