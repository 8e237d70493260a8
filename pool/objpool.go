// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package pool

import "sync"

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() T
	Put(T)
}

// SyncPool wraps sync.Pool for generic usage.
type SyncPool[T any] struct {
	pool *sync.Pool
}

// NewSyncPool creates a new SyncPool with a creator function.
func NewSyncPool[T any](creator func() T) *SyncPool[T] {
	return &SyncPool[T]{
		pool: &sync.Pool{New: func() any { return creator() }},
	}
}

func (sp *SyncPool[T]) Get() T {
	return sp.pool.Get().(T)
}

func (sp *SyncPool[T]) Put(obj T) {
	sp.pool.Put(obj)
}

// FixedBytes hands out zeroed byte slices of one size. Slices of another
// capacity are dropped on Put.
type FixedBytes struct {
	size int
	pool *SyncPool[*[]byte]
}

// NewFixedBytes returns a pool of size-byte slices.
func NewFixedBytes(size int) *FixedBytes {
	return &FixedBytes{
		size: size,
		pool: NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		}),
	}
}

// Size returns the slice length handed out by Get.
func (p *FixedBytes) Size() int { return p.size }

// Get returns a zeroed slice of Size bytes.
func (p *FixedBytes) Get() []byte {
	b := *p.pool.Get()
	clear(b)
	return b
}

// Put recycles b.
func (p *FixedBytes) Put(b []byte) {
	if cap(b) != p.size {
		return
	}
	b = b[:p.size]
	p.pool.Put(&b)
}
