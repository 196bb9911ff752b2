// Package registers provides a fixed-size, mutex-protected byte store
// backing the MEMZ secretary (spec §4.5's "local address space"):
// nodes without a concrete memory-mapped peripheral still need
// something for MEMZ to peek into. Grounded on the teacher's
// backend/mem.go RAM-backed Memory: a byte slice guarded against
// out-of-range access, simplified from mem.go's per-shard RWMutex
// striping (sized for concurrent block-I/O queues hammering a large
// disk image) down to one mutex, since a node's local register file is
// small and MEMZ reads are infrequent compared to disk I/O.
package registers

import (
	"sync"

	"github.com/meshwire/noded/internal/core"
)

// File is a fixed-size register file a node exposes read-only over
// MEMZ, and read-write to its own tasks directly.
type File struct {
	mu   sync.RWMutex
	data []byte
}

// New allocates a File of size bytes, zero-initialized.
func New(size int) *File {
	return &File{data: make([]byte, size)}
}

// ReadAt implements secretary.MemoryReader: read n bytes starting at
// addr, clamped to the file's extent, EINVAL if addr is already out of
// range.
func (f *File) ReadAt(addr uint16, n int) ([]byte, core.Errno) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if int(addr) >= len(f.data) {
		return nil, core.EINVAL
	}
	end := int(addr) + n
	if end > len(f.data) {
		end = len(f.data)
	}
	out := make([]byte, end-int(addr))
	copy(out, f.data[addr:end])
	return out, core.EOK
}

// WriteAt stores data at addr for a node's own tasks to update the
// register file MEMZ later serves. EINVAL if the write would run past
// the file's extent.
func (f *File) WriteAt(addr uint16, data []byte) core.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()

	if int(addr)+len(data) > len(f.data) {
		return core.EINVAL
	}
	copy(f.data[addr:], data)
	return core.EOK
}
