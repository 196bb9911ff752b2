package secretary

import (
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
)

// MemoryReader abstracts the "local address space" MEMZ peeks into —
// satisfied directly by a []byte in tests and by the node's static
// memory image on a real target.
type MemoryReader interface {
	ReadAt(addr uint16, n int) ([]byte, core.Errno)
}

// memzHandler implements Handler for the memory-peek request described
// in spec §4.5: decode {addr uint16, length byte}, read that many
// bytes, reply with them. Generalized to the common Secretary
// reply-as-master-transmit path (see secretary.go's package doc)
// rather than literal same-transaction ST handoff: MEMZ's reply still
// carries the bytes straight back to the requester, just as a fresh
// master transmit instead of a continuation of the original
// transaction, since the fixed ST-handoff wiring in internal/bus is
// only exercised for loopback.
type memzHandler struct {
	mem MemoryReader
}

// NewMEMZ builds the MEMZ secretary task.
func NewMEMZ(id, busID core.TaskID, serviceByte byte, mem MemoryReader, out interfaces.Sender, log interfaces.Logger) *Secretary {
	return New(id, busID, serviceByte, memzRxSize, &memzHandler{mem: mem}, out, log)
}

const memzRxSize = 8 // command prefix (4) + addr (2) + length (1) + slack

func (h *memzHandler) Handle(req []byte, respond func(reply []byte, err core.Errno)) {
	if len(req) < 3 {
		respond(nil, core.EINVAL)
		return
	}
	addr := uint16(req[0])<<8 | uint16(req[1])
	length := int(req[2])

	data, errno := h.mem.ReadAt(addr, length)
	respond(data, errno)
}
