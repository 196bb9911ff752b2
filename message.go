package noded

import "github.com/meshwire/noded/internal/core"

// The message-fabric types live in internal/core so every internal
// package (mq, task, clock, bus, secretary, serial) can share them
// without importing the root package. These aliases are the public
// surface spec §3 describes: noded.Message, noded.TaskID, and so on.
type (
	TaskID       = core.TaskID
	Opcode       = core.Opcode
	Message      = core.Message
	Info         = core.Info
	BusMode      = core.BusMode
	CharProvider = core.CharProvider
)

const (
	OpInit           = core.OpInit
	OpStart          = core.OpStart
	OpStop           = core.OpStop
	OpUpdate         = core.OpUpdate
	OpSetIoctl       = core.OpSetIoctl
	OpSetAlarm       = core.OpSetAlarm
	OpCancel         = core.OpCancel
	OpJob            = core.OpJob
	OpReplyResult    = core.OpReplyResult
	OpReplyInfo      = core.OpReplyInfo
	OpReplyData      = core.OpReplyData
	OpAlarm          = core.OpAlarm
	OpEOC            = core.OpEOC
	OpNotEmpty       = core.OpNotEmpty
	OpNotBusy        = core.OpNotBusy
	OpADCReady       = core.OpADCReady
	OpButtonChange   = core.OpButtonChange
	OpPeriodicAlarm  = core.OpPeriodicAlarm
	OpMasterComplete = core.OpMasterComplete
	OpSlaveComplete  = core.OpSlaveComplete
	OpRdyRequest     = core.OpRdyRequest
)

const (
	ModeMT = core.ModeMT
	ModeMR = core.ModeMR
	ModeSR = core.ModeSR
	ModeST = core.ModeST
	ModeGC = core.ModeGC
)
