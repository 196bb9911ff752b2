package secretary

import (
	"sync"

	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
)

// Sink receives the bytes a stream secretary fetched. OSTREAM's Sink
// writes them to the serial line; ISTREAM's Sink feeds them into the
// NOT_EMPTY byte ring for a downstream consumer (spec §4.6).
type Sink interface {
	Write(data []byte) (int, core.Errno)
}

// streamFetch tracks one in-flight nested master read, keyed by the
// *core.Info the bus driver echoes back on completion.
type streamFetch struct {
	respond func(reply []byte, err core.Errno)
}

// streamHandler implements the shared OSTREAM/ISTREAM behavior (spec
// §4.5): decode {remote address, length}, issue a MEMZ-style
// TWI_MT|MR read back to the requester, and on completion push the
// fetched bytes to sink before replying {count, result}.
type streamHandler struct {
	busID   core.TaskID
	selfID  core.TaskID
	memzCmd byte
	sink    Sink
	out     interfaces.Sender

	mu       sync.Mutex
	inFlight map[*core.Info]streamFetch
}

func newStreamHandler(selfID, busID core.TaskID, memzCmd byte, sink Sink, out interfaces.Sender) *streamHandler {
	return &streamHandler{
		selfID: selfID, busID: busID, memzCmd: memzCmd, sink: sink, out: out,
		inFlight: make(map[*core.Info]streamFetch),
	}
}

// Handle implements Handler: req is {peer, remote_addr_hi, remote_addr_lo, length}.
func (h *streamHandler) Handle(req []byte, respond func(reply []byte, err core.Errno)) {
	if len(req) < 4 {
		respond(nil, core.EINVAL)
		return
	}
	peer := req[0]
	length := int(req[3])
	if length <= 0 {
		respond([]byte{0}, core.EOK)
		return
	}

	fetch := &core.Info{
		Peer: peer,
		Mode: core.ModeMT | core.ModeMR,
		MCmd: h.memzCmd,
		Tx:   append([]byte{}, req[1:4]...), // {addr_hi, addr_lo, length} forwarded verbatim
		Rx:   make([]byte, length),
	}

	h.mu.Lock()
	h.inFlight[fetch] = streamFetch{respond: respond}
	h.mu.Unlock()

	h.out.Send(core.Message{Sender: h.selfID, Receiver: h.busID, Opcode: core.OpJob, JobInfo: fetch})
}

// HandleResult implements ResultHandler: the nested fetch completed
// (or failed); push whatever bytes arrived to the sink and reply
// {count, result} to the original requester.
func (h *streamHandler) HandleResult(info *core.Info, result core.Errno) {
	h.mu.Lock()
	fetch, ok := h.inFlight[info]
	delete(h.inFlight, info)
	h.mu.Unlock()
	if !ok {
		return
	}

	if result != core.EOK {
		fetch.respond([]byte{0}, result)
		return
	}

	n, werr := h.sink.Write(info.Rx)
	fetch.respond([]byte{byte(n)}, werr)
}

// NewOSTREAM builds the OSTREAM secretary task: fetches bytes from the
// requester's memory and writes them to the local serial line.
func NewOSTREAM(id, busID core.TaskID, sink Sink, out interfaces.Sender, log interfaces.Logger) *Secretary {
	h := newStreamHandler(id, busID, constants.SvcMemzRequest, sink, out)
	return New(id, busID, constants.SvcOStreamRequest, streamRxSize, h, out, log)
}

// NewISTREAM builds the ISTREAM secretary task: fetches bytes from the
// requester's memory and feeds them into the local NOT_EMPTY ring for a
// downstream consumer.
func NewISTREAM(id, busID core.TaskID, sink Sink, out interfaces.Sender, log interfaces.Logger) *Secretary {
	h := newStreamHandler(id, busID, constants.SvcMemzRequest, sink, out)
	return New(id, busID, constants.SvcIStreamRequest, streamRxSize, h, out, log)
}

const streamRxSize = 8 // command prefix (4) + remote_addr (1) + addr (2) + length (1)
