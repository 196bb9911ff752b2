// Package core holds the message-fabric types every other package in
// the node needs to share without creating an import cycle back to the
// root package: TaskID, Opcode, Message, Info and the Errno taxonomy.
// The root package re-exports these as type aliases (spec §3) so callers
// outside the module see them as noded.Message, noded.TaskID, and so on
// — the same role the teacher's internal/uapi plays for its wire structs.
package core

import "unsafe"

// TaskID is a small dense build-time-assigned task identifier (spec §3).
// Zero means "no task"; AnyTask means "any sender" when used as a filter.
type TaskID uint8

// Opcode is the closed tag set every Message carries (spec §3).
type Opcode uint8

const (
	OpInit Opcode = iota
	OpStart
	OpStop
	OpUpdate
	OpSetIoctl
	OpSetAlarm
	OpCancel
	OpJob
	OpReplyResult
	OpReplyInfo
	OpReplyData
	OpAlarm
	OpEOC
	OpNotEmpty
	OpNotBusy
	OpADCReady
	OpButtonChange
	OpPeriodicAlarm
	OpMasterComplete
	OpSlaveComplete
	OpRdyRequest
)

var opcodeNames = [...]string{
	OpInit: "INIT", OpStart: "START", OpStop: "STOP", OpUpdate: "UPDATE",
	OpSetIoctl: "SET_IOCTL", OpSetAlarm: "SET_ALARM", OpCancel: "CANCEL",
	OpJob: "JOB", OpReplyResult: "REPLY_RESULT", OpReplyInfo: "REPLY_INFO",
	OpReplyData: "REPLY_DATA", OpAlarm: "ALARM", OpEOC: "EOC",
	OpNotEmpty: "NOT_EMPTY", OpNotBusy: "NOT_BUSY", OpADCReady: "ADC_RDY",
	OpButtonChange: "BUTTON_CHANGE", OpPeriodicAlarm: "PERIODIC_ALARM",
	OpMasterComplete: "MASTER_COMPLETE", OpSlaveComplete: "SLAVE_COMPLETE",
	OpRdyRequest: "RDY_REQUEST",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) && opcodeNames[o] != "" {
		return opcodeNames[o]
	}
	return "UNKNOWN_OPCODE"
}

// urgentOpcodes is the set of opcodes an ISR-equivalent context (the
// reactor) may post. Everything else is "normal" task-context traffic
// (spec §3, queue priority classes).
var urgentOpcodes = map[Opcode]bool{
	OpAlarm:          true,
	OpEOC:            true,
	OpMasterComplete: true,
	OpSlaveComplete:  true,
	OpNotBusy:        true,
	OpNotEmpty:       true,
}

// IsUrgent reports whether o belongs to the urgent delivery class.
func (o Opcode) IsUrgent() bool { return urgentOpcodes[o] }

// CharProvider is the pull-iterator capability (spec §4.6, §9): "give me
// the next byte, or tell me EWOULDBLOCK." A NOT_EMPTY message carries
// one of these; the consumer may hold onto it across messages and poll
// it lazily, but it must never block.
type CharProvider func() (byte, Errno)

// BusMode is the TWI mode bitmask (spec §4.4).
type BusMode uint8

const (
	ModeMT BusMode = 1 << iota // master transmit
	ModeMR                     // master receive
	ModeSR                     // slave receive
	ModeST                     // slave transmit
	ModeGC                     // also match the general-call address
)

func (m BusMode) Has(bit BusMode) bool { return m&bit != 0 }

// Info is a task-owned, service-loaned record used to correlate a
// request with its eventual reply (spec §3's "info block"). Callers
// lend an *Info to the clock or bus by reference; while it is in flight
// the owning task must not mutate it, and ownership returns only via
// the corresponding reply message.
type Info struct {
	// Next links pending Infos inside a service's internal list
	// (clock's ordered alarm list, bus's master-job FIFO). Only the
	// owning service touches this field, and only under its own
	// critical section.
	Next *Info

	// ReplyTo is the task the owning service replies to on completion.
	ReplyTo TaskID

	// DelayMillis / ExpiryTicks are clock-job fields (spec §4.3).
	DelayMillis int64
	ExpiryTicks int64

	// Bus-job fields (spec §4.4). Peer is the remote node's 7-bit
	// address; Mode is the MT/MR/SR/ST/GC bitmask; MCmd/SCmd are the
	// leading master/slave command bytes; Tx/Rx are the transaction
	// buffers; Handoff is the optional MT-to-ST callback of an ST
	// listener, invoked during master loopback with the master's Rx when
	// the master job has MR set.
	Peer    byte
	Mode    BusMode
	MCmd    byte
	SCmd    byte
	Tx      []byte
	Rx      []byte
	Handoff func(dst []byte) int

	// Attempt counts the retries a service has already spent on this
	// Info (spec §4.4 retry/back-off). Owned by the service, not the
	// task.
	Attempt int
}

// Message is the fixed-size record exchanged between tasks (spec §3).
// It is a value, not an owned reference: the queue copies messages in
// and out of its ring rather than holding pointers to caller state,
// matching "messages are values, not owned references."
type Message struct {
	Sender   TaskID
	Receiver TaskID
	Opcode   Opcode

	// Payload union (spec §3): at most one of these is meaningful for
	// any given Opcode.
	IoctlCode  int32
	IoctlParam int64
	Result     Errno
	JobInfo    *Info
	Provider   CharProvider
}

// messageWordSize is a compile-time nod to "total size fits a few
// machine words" (spec §3) — the struct stays small even though Go
// does not let us express a real C-style union.
const messageWordSize = unsafe.Sizeof(Message{}) / unsafe.Sizeof(uintptr(0))

var _ = messageWordSize
