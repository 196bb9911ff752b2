// Package constants holds the compile-time tunables shared by every
// package in the kernel. Nothing here is meant to vary at runtime: a
// different node role means a different build, not a different flag.
package constants

import "time"

// Queue & scheduler (spec §4.1).
const (
	// QueueCapacity is the number of message slots in the fixed ring.
	// Overflow past this point is counted, never blocked on.
	QueueCapacity = 48
)

// Task identifiers (spec §3).
const (
	// NoTask is the reserved "nobody" receiver/sender.
	NoTask = 0

	// AnyTask means "any sender" when used as a filter, and is also the
	// rx-buffer sentinel a secretary pre-fills to accept any requester
	// (spec §4.4, §6).
	AnyTask = 0xff
)

// Clock (spec §4.3).
const (
	// StepSize is the number of ticks in one hardware-counter rollover.
	StepSize = 1 << 16

	// Spacing is the minimum tick gap enforced between two adjacent
	// alarm expiries so the ISR never has to emit two ALARMs off one
	// rollover.
	Spacing = 4

	// MaxMillis is the largest delay SET_ALARM will accept before
	// replying EINVAL instead of scheduling.
	MaxMillis = 1 << 24

	// RenormalizeThreshold is the quiescent-prefix size (in ticks) above
	// which an insert triggers renormalizing the pending list back
	// toward zero. See DESIGN.md for why this is threshold-gated rather
	// than run on every insert.
	RenormalizeThreshold = StepSize * 4
)

// Bus / TWI (spec §4.4).
const (
	// FBC is the number of bytes in the slave-side command prefix:
	// service byte, sender task id, sender jobref high, jobref low.
	FBC = 4

	// QuiescentChecks is the number of consecutive idle bus samples
	// required before a master transaction may start.
	QuiescentChecks = 8

	// MaxNackRetries bounds MT_SLA_NACK / MT_DATA_NACK retries before
	// the job fails with ENODEV / EACCES respectively.
	MaxNackRetries = 3

	// MaxTransmitAttempts bounds bus-busy-at-STARTING retries before the
	// job fails with EHOSTDOWN.
	MaxTransmitAttempts = 5

	// RetryDelay is the back-off between NACK retries.
	RetryDelay = 5 * time.Millisecond

	// ArbitrationDelay is the back-off after MT_ARB_LOST.
	ArbitrationDelay = 2 * time.Millisecond

	// TransmitDelay is the back-off after a bus-busy STARTING failure.
	TransmitDelay = 100 * time.Millisecond
)

// Service byte namespace (spec §6). The range is flat 8-bit, 128-177.
const (
	ServiceByteMin = 128
	ServiceByteMax = 177

	SvcUTCRequest     = 143
	SvcMemzRequest    = 144
	SvcSysconRequest  = 160
	SvcSysconReply    = 161
	SvcIStreamRequest = 168
	SvcIStreamReply   = 169
	SvcOStreamRequest = 170
	SvcOStreamReply   = 171
)

// GeneralCallAddress is the 7-bit I2C general-call address (spec §6).
const GeneralCallAddress = 0x00

// Serial line (spec §4.6, §6).
const (
	// SerialRingCapacity is the number of bytes the NOT_EMPTY byte mux
	// buffers between producer and consumer.
	SerialRingCapacity = 256

	// SiocConsumer is the SET_IOCTL code that switches the mux's
	// registered NOT_EMPTY consumer (spec §4.6).
	SiocConsumer = 1

	// SiocBaudRate is the SET_IOCTL code that reconfigures the UART's
	// baud rate to one of SupportedBaudRates (spec §4.6).
	SiocBaudRate = 2
)

// SupportedBaudRates is the enumerated set SET_IOCTL(SIOC_BAUDRATE) may
// select from.
var SupportedBaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400}

// Startup cascade timing (spec §6 "Startup wire behavior").
//
// These bound how long Node.Start waits for each inittab entry to
// acknowledge INIT before giving up — the host-process analog of the
// teacher's device-visibility polling during ADD_DEV/START_DEV.
const (
	// InitAckTimeout is the maximum time to wait for one task's INIT
	// acknowledgement before aborting startup.
	InitAckTimeout = 2 * time.Second

	// InitPollInterval is how often Node.Start checks whether the
	// current inittab entry has acknowledged.
	InitPollInterval = 1 * time.Millisecond
)
