package vm

import "fmt"

// Handle identifies a heap object. Zero is never a valid handle.
type Handle uint32

// Object is a heap-allocated array.
type Object struct {
	Arr     []Value
	AllocID uint64
}

// Heap stores all arrays created by a run.
// Handles are monotonically increasing and never reused within a run, so
// two runs of the same program allocate identical handles.
// Nothing is reclaimed: every allocation counts against the cell budget
// until the run ends. An empty array costs one cell.
type Heap struct {
	next  Handle
	objs  map[Handle]*Object
	cells int
	limit int

	vm *VM
}

func newHeap(vm *VM, limit int) *Heap {
	return &Heap{next: 1, objs: make(map[Handle]*Object, 16), limit: limit, vm: vm}
}

// AllocArray creates an array of n unit values. Exceeding the cell budget
// traps before any memory is taken.
func (h *Heap) AllocArray(n int) Handle {
	cost := max(n, 1)
	if h.limit > 0 && cost > h.limit-h.cells {
		h.vm.panic(TrapHeapExhausted, fmt.Sprintf("anew %d: heap budget of %d cells exhausted (%d in use)", n, h.limit, h.cells))
	}
	h.cells += cost
	handle := h.next
	h.next++
	arr := make([]Value, n)
	for i := range arr {
		arr[i] = MakeUnit()
	}
	h.objs[handle] = &Object{Arr: arr, AllocID: uint64(handle)}
	if h.vm != nil && h.vm.Trace != nil {
		h.vm.Trace.TraceHeapAlloc(handle, n)
	}
	return handle
}

// Get returns the object behind handle; a dangling handle is a type error.
func (h *Heap) Get(handle Handle) *Object {
	obj, ok := h.objs[handle]
	if !ok || obj == nil {
		h.vm.panic(TrapTypeMismatch, fmt.Sprintf("invalid array handle %d", handle))
	}
	return obj
}

// Len reports how many objects are live.
func (h *Heap) Len() int {
	return len(h.objs)
}

// Cells reports how many budget cells have been allocated.
func (h *Heap) Cells() int {
	return h.cells
}
