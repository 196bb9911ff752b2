package bus

import (
	"sync"

	"github.com/meshwire/noded/internal/core"
	"github.com/meshwire/noded/internal/wire"
)

// pool is the unordered set of registered slave listeners, searched by
// leading service byte (spec §3's "Bus job" pool, spec §4.4's slave
// dispatch). Guarded by its own mutex rather than being dispatch-loop
// only: real I2C slave hardware must ACK or NACK a transaction within
// the protocol's per-byte timing budget, so the match has to be
// reachable from the transport's own goroutine instead of waiting for
// a round trip through the message queue (documented in DESIGN.md as a
// deliberate, narrow exception to "only the dispatch loop touches
// shared state" — the same kind of carve-out spec §9 already grants the
// clock's pending list against the hardware ISR).
type pool struct {
	mu        sync.Mutex
	listeners []*core.Info
}

func newPool() *pool {
	return &pool{}
}

// register adds info to the pool. info.SCmd is the service byte it
// listens for; info.Rx's first 3 bytes are the pre-posted suffix used
// for targeted matching (or wire.AnySuffix in the first byte to accept
// any sender).
func (p *pool) register(info *core.Info) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, info)
}

// unregister removes info from the pool, if present.
func (p *pool) unregister(info *core.Info) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.listeners {
		if l == info {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// suffixOf reads the 3-byte suffix a listener pre-posted into its Rx
// buffer, defaulting to the ANY sentinel if the buffer is too short to
// carry one.
func suffixOf(info *core.Info) [3]byte {
	if len(info.Rx) < 3 {
		return [3]byte{wire.AnySuffix, 0, 0}
	}
	return [3]byte{info.Rx[0], info.Rx[1], info.Rx[2]}
}

// match implements spec §4.4's two-phase slave dispatch: first a
// listener whose service byte matches AND whose posted suffix matches
// the incoming prefix exactly (targeted reply routing), then — only if
// none matched — a listener whose service byte matches and whose
// posted suffix is the ANY sentinel (generic acceptor). It removes the
// matched listener from the pool: a one-shot match per spec's
// "re-register" convention for secretaries.
func (p *pool) match(prefix wire.CommandPrefix) (*core.Info, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, l := range p.listeners {
		suffix := suffixOf(l)
		if l.SCmd == prefix.Service && suffix[0] != wire.AnySuffix && wire.MatchesSuffix(suffix, prefix) {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return l, true
		}
	}
	for i, l := range p.listeners {
		if l.SCmd == prefix.Service && suffixOf(l)[0] == wire.AnySuffix {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return l, true
		}
	}
	return nil, false
}

// cancel removes info from the pool if present and idle, matching
// CANCEL's "registered listener" case (spec §4.4 cancellation
// semantics): EOK if it was sitting in the pool, ESRCH otherwise (the
// caller is responsible for the EBUSY case of an actively-matching
// listener, which never reaches the pool mutex mid-match).
func (p *pool) cancel(info *core.Info) core.Errno {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.listeners {
		if l == info {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return core.EOK
		}
	}
	return core.ESRCH
}
