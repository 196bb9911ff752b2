package noded

import "github.com/meshwire/noded/internal/constants"

// Re-exported node addresses and service bytes (spec §6), the public
// surface a node's own tasks and test harnesses build against without
// reaching into internal/constants directly.
const (
	SvcUTCRequest     = constants.SvcUTCRequest
	SvcMemzRequest    = constants.SvcMemzRequest
	SvcSysconRequest  = constants.SvcSysconRequest
	SvcSysconReply    = constants.SvcSysconReply
	SvcIStreamRequest = constants.SvcIStreamRequest
	SvcIStreamReply   = constants.SvcIStreamReply
	SvcOStreamRequest = constants.SvcOStreamRequest
	SvcOStreamReply   = constants.SvcOStreamReply

	GeneralCallAddress = constants.GeneralCallAddress

	ServiceByteMin = constants.ServiceByteMin
	ServiceByteMax = constants.ServiceByteMax
)

// SupportedBaudRates is the enumerated set SET_IOCTL(SIOC_BAUDRATE) may
// select from (spec §4.6).
var SupportedBaudRates = constants.SupportedBaudRates
