package sys

import (
	"fmt"
	"sync"
	"unsafe"
)

// Heap allocates and frees engine memory. Implementations follow the C
// semantics of calloc, malloc and free: Free(nil) is a no-op and Malloc
// does not promise zeroed memory.
type Heap interface {
	Calloc(n, size uintptr) unsafe.Pointer
	Malloc(size uintptr) unsafe.Pointer
	Free(p unsafe.Pointer)
}

// TrackingHeap is a Heap backed by Go memory that records every live block.
//
// Blocks stay reachable until they are freed, so records stored in them may
// point at each other. Freeing a pointer the heap does not own panics, which
// turns double frees into immediate failures.
//
// TrackingHeap is safe for concurrent use.
type TrackingHeap struct {
	mu     sync.Mutex
	blocks map[uintptr][]uint64
	allocs int
	frees  int
}

// NewTrackingHeap creates an empty TrackingHeap.
func NewTrackingHeap() *TrackingHeap {
	return &TrackingHeap{
		blocks: make(map[uintptr][]uint64),
	}
}

// Calloc returns a zeroed block of n*size bytes, aligned to 8 bytes.
func (h *TrackingHeap) Calloc(n, size uintptr) unsafe.Pointer {
	return h.alloc(n * size)
}

// Malloc returns a block of size bytes. The block happens to be zeroed;
// callers must not rely on it.
func (h *TrackingHeap) Malloc(size uintptr) unsafe.Pointer {
	return h.alloc(size)
}

func (h *TrackingHeap) alloc(size uintptr) unsafe.Pointer {
	words := (size + 7) / 8
	if words == 0 {
		words = 1
	}
	block := make([]uint64, words)
	p := unsafe.Pointer(&block[0])

	h.mu.Lock()
	h.blocks[uintptr(p)] = block
	h.allocs++
	h.mu.Unlock()

	return p
}

// Free releases a block. It panics if p is not a live block of this heap.
func (h *TrackingHeap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.blocks[uintptr(p)]; !ok {
		panic(fmt.Sprintf("sys: free of unowned pointer %p", p))
	}
	delete(h.blocks, uintptr(p))
	h.frees++
}

// Owns reports whether p is a live block of this heap.
func (h *TrackingHeap) Owns(p unsafe.Pointer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.blocks[uintptr(p)]
	return ok
}

// Live returns the number of blocks allocated and not yet freed.
func (h *TrackingHeap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}

// Stats returns the total number of allocations and frees.
func (h *TrackingHeap) Stats() (allocs, frees int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocs, h.frees
}
