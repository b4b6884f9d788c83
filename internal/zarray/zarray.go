// Package zarray wraps the engine's growable array (zarray_t) in a typed,
// single-owner container.
//
// An Array either adopts a record the engine returned or starts empty. It owns
// both the record and its element buffer and frees them on Close. Clone makes
// a deep copy backed by new storage.
//
// Elements live in engine memory, so T must not contain Go pointers to
// Go-managed objects. Pointers into engine memory (for example
// *sys.DetectionRecord) are fine.
//
// An Array is not safe for concurrent use.
package zarray

import (
	"fmt"
	"iter"
	"unsafe"

	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// minGrow is the first capacity zarray_add allocates.
const minGrow = 8

// Array is a typed view over an owned zarray_t. Copies of an Array value
// share one owner, so a record is freed at most once.
type Array[T any] struct {
	*array[T]
}

type array[T any] struct {
	heap sys.Heap
	rec  *sys.ArrayRecord
	gen  uint64 // bumped on every structural change
}

// New allocates an empty array for elements of type T.
func New[T any](heap sys.Heap) *Array[T] {
	rec := (*sys.ArrayRecord)(heap.Calloc(1, unsafe.Sizeof(sys.ArrayRecord{})))
	if rec == nil {
		panic("zarray: out of memory")
	}
	*rec = sys.ArrayRecord{
		ElSz: elemSize[T](),
	}
	return &Array[T]{&array[T]{heap: heap, rec: rec}}
}

// Adopt takes ownership of rec and its buffer. rec must have been allocated
// from heap. Adopt panics if rec is nil.
func Adopt[T any](heap sys.Heap, rec *sys.ArrayRecord) *Array[T] {
	if rec == nil {
		panic("zarray: adopt of nil record")
	}
	return &Array[T]{&array[T]{heap: heap, rec: rec}}
}

func elemSize[T any]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

func (a *Array[T]) open() bool {
	return a.array != nil && a.rec != nil
}

func (a *Array[T]) record() *sys.ArrayRecord {
	if !a.open() {
		panic("zarray: use of closed array")
	}
	return a.rec
}

// checkBounds panics unless 0 <= Size <= Alloc.
func checkBounds(rec *sys.ArrayRecord) {
	if rec.Size < 0 || rec.Size > rec.Alloc {
		panic(fmt.Sprintf("zarray: size %d exceeds capacity %d", rec.Size, rec.Alloc))
	}
}

// checkElemSize panics when the record was built for a different element type.
func (a *Array[T]) checkElemSize(rec *sys.ArrayRecord) {
	if want := elemSize[T](); rec.ElSz != want {
		panic(fmt.Sprintf("zarray: element size %d does not match type size %d", rec.ElSz, want))
	}
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	rec := a.record()
	checkBounds(rec)
	return int(rec.Size)
}

// Cap returns the number of allocated element slots.
func (a *Array[T]) Cap() int {
	return int(a.record().Alloc)
}

// ElementSize returns the element size recorded by the engine.
func (a *Array[T]) ElementSize() uintptr {
	return a.record().ElSz
}

// Slice returns the elements as a slice over engine memory. The slice is
// bounded by Len and is invalidated by Append, Close and Release.
func (a *Array[T]) Slice() []T {
	rec := a.record()
	checkBounds(rec)
	if rec.Size == 0 {
		return nil
	}
	a.checkElemSize(rec)
	return unsafe.Slice((*T)(rec.Data), rec.Size)
}

// At returns a reference to element i. It panics if i is out of range.
func (a *Array[T]) At(i int) *T {
	return &a.Slice()[i]
}

// Get returns a copy of element i.
func (a *Array[T]) Get(i int) T {
	return a.Slice()[i]
}

// Set overwrites element i.
func (a *Array[T]) Set(i int, v T) {
	a.Slice()[i] = v
}

// All yields every element with its index, in order. The length is fixed when
// iteration starts; changing the array's structure mid-iteration panics.
func (a *Array[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		n := a.Len()
		gen := a.gen
		for i := 0; i < n; i++ {
			if a.gen != gen {
				panic("zarray: array modified during iteration")
			}
			if !yield(i, a.At(i)) {
				return
			}
		}
	}
}

// Append adds v at the end, growing storage the way zarray_add does.
func (a *Array[T]) Append(v T) {
	rec := a.record()
	checkBounds(rec)
	a.checkElemSize(rec)

	if rec.Size == rec.Alloc {
		a.grow(rec)
	}
	rec.Size++
	a.gen++
	a.Slice()[rec.Size-1] = v
}

func (a *Array[T]) grow(rec *sys.ArrayRecord) {
	alloc := rec.Alloc * 2
	if alloc < minGrow {
		alloc = minGrow
	}

	data := a.heap.Malloc(uintptr(alloc) * rec.ElSz)
	if data == nil {
		panic("zarray: out of memory")
	}
	if rec.Size > 0 {
		n := uintptr(rec.Size) * rec.ElSz
		copy(unsafe.Slice((*byte)(data), n), unsafe.Slice((*byte)(rec.Data), n))
	}
	a.heap.Free(rec.Data)

	rec.Data = data
	rec.Alloc = alloc
}

// Clone returns a deep copy with its own record and buffer.
//
// The new buffer has room for Cap elements, but only Len elements are copied;
// the capacity is carried over unchanged. Clone panics if the record reports
// more elements than slots, or an element size different from T's.
func (a *Array[T]) Clone() *Array[T] {
	src := a.record()
	checkBounds(src)
	a.checkElemSize(src)

	dst := (*sys.ArrayRecord)(a.heap.Calloc(1, unsafe.Sizeof(sys.ArrayRecord{})))
	if dst == nil {
		panic("zarray: out of memory")
	}
	*dst = sys.ArrayRecord{
		ElSz:  src.ElSz,
		Size:  src.Size,
		Alloc: src.Alloc,
	}

	if src.Alloc > 0 {
		dst.Data = a.heap.Malloc(uintptr(src.Alloc) * src.ElSz)
		if dst.Data == nil {
			a.heap.Free(unsafe.Pointer(dst))
			panic("zarray: out of memory")
		}
		if n := uintptr(src.Size) * src.ElSz; n > 0 {
			copy(unsafe.Slice((*byte)(dst.Data), n), unsafe.Slice((*byte)(src.Data), n))
		}
	}

	return &Array[T]{&array[T]{heap: a.heap, rec: dst}}
}

// Close frees the element buffer and the record. Calling Close again is a
// no-op; any other method panics after Close.
func (a *Array[T]) Close() {
	if !a.open() {
		return
	}
	rec := a.rec
	a.rec = nil
	a.gen++

	if rec.Data != nil {
		a.heap.Free(rec.Data)
	}
	a.heap.Free(unsafe.Pointer(rec))
}

// Release gives up ownership and returns the raw record. The caller becomes
// responsible for freeing it.
func (a *Array[T]) Release() *sys.ArrayRecord {
	rec := a.record()
	a.rec = nil
	a.gen++
	return rec
}
