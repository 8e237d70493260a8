// File: sockstate/table.go
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe in-memory socket state table.

package sockstate

import (
	"sync"

	"github.com/momentics/hioload-iocp/api"
)

// Table is the default Store implementation.
type Table struct {
	shards []*tableShard
	mask   uint32
}

type tableShard struct {
	mu      sync.RWMutex
	records map[api.Fd]*SocketState
}

// NewTable constructs a sharded table with shardCount shards.
func NewTable(shardCount int) *Table {
	if shardCount <= 0 {
		shardCount = 16
	}
	// power-of-two shards for bitmasking
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*tableShard, m)
	for i := range shards {
		shards[i] = &tableShard{records: make(map[api.Fd]*SocketState)}
	}
	return &Table{shards: shards, mask: m - 1}
}

// shard picks the shard for fd. Socket values are multiples of four on
// Windows, so the low bits are dropped before masking.
func (t *Table) shard(fd api.Fd) *tableShard {
	return t.shards[uint32(fd>>2)&t.mask]
}

// Get returns existing or new record for fd.
func (t *Table) Get(fd api.Fd) *SocketState {
	sh := t.shard(fd)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.records[fd]; ok {
		return s
	}
	s := NewSocketState(fd)
	sh.records[fd] = s
	return s
}

// Lookup fetches a record if present.
func (t *Table) Lookup(fd api.Fd) *SocketState {
	sh := t.shard(fd)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.records[fd]
}

// Delete removes s if it is still the record registered for its descriptor.
func (t *Table) Delete(s *SocketState) {
	if s == nil {
		return
	}
	sh := t.shard(s.Fd)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.records[s.Fd]; ok && cur == s {
		delete(sh.records, s.Fd)
	}
}

// Len returns the number of live records.
func (t *Table) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

// Range applies fn to all records.
func (t *Table) Range(fn func(*SocketState)) {
	for _, sh := range t.shards {
		sh.mu.RLock()
		for _, s := range sh.records {
			fn(s)
		}
		sh.mu.RUnlock()
	}
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
