// Package secretary implements the reusable request/reply adapter over
// the bus (spec §4.5): a secretary slave-receives a request tagged with
// a service byte, dispatches it to a local Handler, and replies as a
// master transmit back to the requester. Grounded on the teacher's
// pluggable-Backend idea (internal/interfaces.Backend:
// ReadAt/WriteAt/Size/Close/Flush), generalized from "block device
// backend" to "bus request handler."
package secretary

import (
	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/task"
	"github.com/meshwire/noded/internal/wire"
)

// Handler answers one decoded request. respond must be called exactly
// once, synchronously or after issuing further bus requests of its own
// (OSTREAM/ISTREAM's nested master read) — whichever the concrete
// secretary needs.
type Handler interface {
	Handle(req []byte, respond func(reply []byte, err core.Errno))
}

// Secretary is the four-entry-point template spec.md §4.5 describes.
// MEMZ, OSTREAM and ISTREAM are Secretaries built by New with their own
// Handler; Console is a separate task that does not use it.
type Secretary struct {
	task.StateMachine

	id          core.TaskID
	busID       core.TaskID
	serviceByte byte
	rxSize      int

	handler Handler
	out     interfaces.Sender
	log     interfaces.Logger
}

// New builds a Secretary task with the given TaskID, registering as a
// listener for serviceByte on busID, with an rx buffer sized rxSize
// bytes (must be at least wire.CommandPrefixLen plus the largest
// request payload the handler expects).
func New(id, busID core.TaskID, serviceByte byte, rxSize int, handler Handler, out interfaces.Sender, log interfaces.Logger) *Secretary {
	return &Secretary{id: id, busID: busID, serviceByte: serviceByte, rxSize: rxSize, handler: handler, out: out, log: log}
}

// ID implements task.Task.
func (s *Secretary) ID() core.TaskID { return s.id }

// Receive implements task.Task's four entry points (spec §4.5).
func (s *Secretary) Receive(msg *core.Message) core.Errno {
	switch msg.Opcode {
	case core.OpInit:
		return s.register()
	case core.OpReplyInfo:
		return s.onReplyInfo(msg)
	case core.OpReplyResult:
		if rh, ok := s.handler.(ResultHandler); ok {
			rh.HandleResult(msg.JobInfo, msg.Result)
			return core.EOK
		}
		return core.ENOMSG
	default:
		return core.ENOMSG
	}
}

// ResultHandler is implemented by handlers (OSTREAM, ISTREAM) that
// issue their own nested master request to fetch a payload before they
// can answer the original one, and so need their secretary to route
// the nested request's REPLY_RESULT back to them.
type ResultHandler interface {
	HandleResult(info *core.Info, result core.Errno)
}

// register posts a JOB(SR, ANY suffix) to the bus, then goes idle:
// actual pool registration happens asynchronously once the bus task
// dispatches the JOB message (spec §4.5 "on success stay idle").
func (s *Secretary) register() core.Errno {
	info := &core.Info{
		SCmd: s.serviceByte,
		Mode: core.ModeSR,
		Rx:   make([]byte, s.rxSize),
	}
	info.Rx[0] = wire.AnySuffix
	s.out.Send(core.Message{Sender: s.id, Receiver: s.busID, Opcode: core.OpJob, JobInfo: info})
	s.Idle()
	return core.EOK
}

// onReplyInfo dispatches entry points 2 and 3: a successful
// slave-receive decodes and hands off to the local handler; a failed
// one either re-answers the still-waiting client (EACCES/EAGAIN) or
// simply re-registers (listener discarded for any other reason). Entry
// point 4 ("REPLY_INFO from the local handler") is the respond closure
// passed into Handler.Handle below — a direct Go callback rather than a
// second round trip through the message queue, since the handler runs
// in the same task-logic context that would otherwise post and
// immediately redeliver it to itself.
func (s *Secretary) onReplyInfo(msg *core.Message) core.Errno {
	info := msg.JobInfo

	switch msg.Result {
	case core.EOK:
		if len(info.Rx) < wire.CommandPrefixLen {
			s.log.Warn("secretary request shorter than command prefix")
			return s.register()
		}
		prefix := wire.DecodeCommandPrefix(info.Rx)
		payload := info.Rx[wire.CommandPrefixLen:]
		s.handler.Handle(payload, func(reply []byte, err core.Errno) {
			s.sendReply(info, prefix, err, reply)
		})
		return core.EOK
	case core.EACCES, core.EAGAIN:
		s.sendReply(info, wire.DecodeCommandPrefix(info.Rx), msg.Result, nil)
		return core.EOK
	default:
		return s.register()
	}
}

// sendReply finalizes a request: build the reply master-transmit to
// the requester and re-register for the next request (spec §4.5's
// "eventually call send_reply(result) and re-register").
func (s *Secretary) sendReply(info *core.Info, prefix wire.CommandPrefix, err core.Errno, body []byte) {
	suffix := wire.SuffixOf(prefix)
	tx := make([]byte, 0, len(suffix)+1+len(body))
	tx = append(tx, suffix[:]...)
	tx = append(tx, byte(err))
	tx = append(tx, body...)

	reply := &core.Info{
		Peer: info.Peer,
		Mode: core.ModeMT,
		MCmd: s.serviceByte + 1, // <service>_REPLY is the request byte plus one (spec §6)
		Tx:   tx,
		Rx:   nil,
	}
	s.out.Send(core.Message{Sender: s.id, Receiver: s.busID, Opcode: core.OpJob, JobInfo: reply})

	s.register()
}
