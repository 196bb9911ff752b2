// Package wire encodes and decodes the two-wire bus's on-wire framing:
// the 7-bit address/direction byte and the four-byte command prefix
// every slave-side transaction opens with (spec §6, §4.4). It has no
// dependency on the driver's state machine — it is pure byte shuffling,
// modeled on the teacher's internal/uapi marshal helpers.
package wire

import "encoding/binary"

// AnySuffix is the sentinel a listener places in the first suffix byte
// of its pre-posted rx buffer to accept any sender (spec §6's "ANY").
const AnySuffix = 0xff

// CommandPrefixLen is FBC, the four-byte command prefix every slave
// transaction opens with: [service, senderTask, jobHi, jobLo] (spec §4.4).
const CommandPrefixLen = 4

// Address packs a 7-bit node address and a read/write direction bit
// into the single byte that opens a master transaction (spec §6: "7-bit
// node address (direction bit LSB: 0 write / 1 read)").
type Address struct {
	Node byte // 0-127
	Read bool
}

// Byte encodes a into its wire representation.
func (a Address) Byte() byte {
	b := (a.Node & 0x7f) << 1
	if a.Read {
		b |= 1
	}
	return b
}

// DecodeAddress unpacks the wire address byte b.
func DecodeAddress(b byte) Address {
	return Address{Node: (b >> 1) & 0x7f, Read: b&1 != 0}
}

// CommandPrefix is the decoded form of the four bytes that open every
// slave-side transaction: a leading service byte and a 3-byte sender
// reference the bus treats as opaque (spec §4.4, §6).
type CommandPrefix struct {
	Service    byte
	SenderTask byte
	JobRef     uint16 // sender_jobref_high/low, big-endian on the wire
}

// Encode writes p as the four-byte command prefix.
func (p CommandPrefix) Encode() [CommandPrefixLen]byte {
	var buf [CommandPrefixLen]byte
	buf[0] = p.Service
	buf[1] = p.SenderTask
	binary.BigEndian.PutUint16(buf[2:4], p.JobRef)
	return buf
}

// DecodeCommandPrefix reads the leading four bytes of a slave-receive
// buffer into a CommandPrefix. Callers must ensure len(buf) >= CommandPrefixLen.
func DecodeCommandPrefix(buf []byte) CommandPrefix {
	return CommandPrefix{
		Service:    buf[0],
		SenderTask: buf[1],
		JobRef:     binary.BigEndian.Uint16(buf[2:4]),
	}
}

// MatchesSuffix reports whether the 3 suffix bytes of a listener's
// pre-posted rx buffer either match the incoming prefix's sender/jobref
// exactly, or carry the ANY sentinel in the first suffix byte (spec
// §4.4's two-phase match: targeted first, then generic ANY acceptor).
func MatchesSuffix(posted [3]byte, incoming CommandPrefix) bool {
	if posted[0] == AnySuffix {
		return true
	}
	return posted[0] == incoming.SenderTask &&
		posted[1] == byte(incoming.JobRef>>8) &&
		posted[2] == byte(incoming.JobRef)
}

// SuffixOf returns the 3-byte suffix (sender_task, jobref_hi, jobref_lo)
// a sender posts, for use in targeted reply routing.
func SuffixOf(p CommandPrefix) [3]byte {
	return [3]byte{p.SenderTask, byte(p.JobRef >> 8), byte(p.JobRef)}
}
