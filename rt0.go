// Package rt0 initializes statically allocated memory on bare-metal targets.
//
// After reset the RAM backing a program's globals holds undefined contents.
// Before any code references a global, the .bss section must read as zero
// bytes and the .data section must hold its initial values, copied from the
// load image in flash. [ZeroBSS] and [InitData] are these two operations,
// meant to be called from the reset handler before the runtime is brought
// up: they don't allocate, don't panic and call nothing.
//
// All preconditions are contracts on the caller and are never checked, since
// there is no way to report a failure this early. A violated contract
// silently corrupts the initial state of every global in the program. The
// section bounds are passed as bare [unsafe.Pointer] values, typically taken
// from linker provided symbols. Don't form slices or typed references over
// them, especially not over the one-past-end address, which belongs to the
// next section.
package rt0

import (
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/embeddedrt/rt0/debug"
)

// Word constrains the store width used to batch byte operations. Instantiate
// the operations with the widest unsigned type the target can load and store
// at every address of the span.
type Word interface{ constraints.Unsigned }

// ZeroBSS writes zero to every byte in [start, end).
//
// The span is zeroed in stores of T while at least one full word remains,
// with byte stores for the unaligned head and tail. The destination is never
// read and no address at or beyond end is accessed.
//
// The caller must guarantee end >= start and exclusive, uncontended access
// to the span until the call returns.
//
//go:nosplit
func ZeroBSS[T Word](start, end unsafe.Pointer) {
	var w T
	p := start
	for uintptr(p) < uintptr(end) && uintptr(p)%unsafe.Alignof(w) != 0 {
		*(*byte)(p) = 0
		p = unsafe.Add(p, 1)
	}
	for uintptr(end)-uintptr(p) >= unsafe.Sizeof(w) {
		*(*T)(p) = 0
		p = unsafe.Add(p, unsafe.Sizeof(w))
	}
	for uintptr(p) < uintptr(end) {
		*(*byte)(p) = 0
		p = unsafe.Add(p, 1)
	}
}

// InitData copies end-start bytes from the load image at load into
// [start, end), in ascending address order. Word stores of T are used while
// at least one full word remains in the destination, with byte accesses for
// the unaligned head and tail. Afterwards the destination equals the load
// image byte for byte.
//
// The caller must guarantee end >= start, that the load image doesn't
// overlap the destination, that it is congruent to start modulo the
// alignment of T, and exclusive access to the destination until the call
// returns. The load image is only read and may live in ROM.
//
//go:nosplit
func InitData[T Word](start, end, load unsafe.Pointer) {
	var w T
	d, s := start, load
	for uintptr(d) < uintptr(end) && uintptr(d)%unsafe.Alignof(w) != 0 {
		*(*byte)(d) = *(*byte)(s)
		d, s = unsafe.Add(d, 1), unsafe.Add(s, 1)
	}
	for uintptr(end)-uintptr(d) >= unsafe.Sizeof(w) {
		*(*T)(d) = *(*T)(s)
		d, s = unsafe.Add(d, unsafe.Sizeof(w)), unsafe.Add(s, unsafe.Sizeof(w))
	}
	for uintptr(d) < uintptr(end) {
		*(*byte)(d) = *(*byte)(s)
		d, s = unsafe.Add(d, 1), unsafe.Add(s, 1)
	}
}

// A Range is a half-open span [Start, End) of a linker section. It carries
// only the two addresses, the memory itself stays owned by the caller.
type Range struct {
	Start, End unsafe.Pointer
}

// Len returns the size of the span in bytes.
func (r Range) Len() uintptr { return uintptr(r.End) - uintptr(r.Start) }

// Init runs the canonical startup sequence: zero .bss, then copy .data from
// its load image. It must have returned before any code references a global
// and before interrupts or secondary cores are released, since neither
// operation synchronizes.
//
//go:nosplit
func Init[T Word](bss, data Range, load unsafe.Pointer) {
	if debug.Enabled {
		debug.Assert(uintptr(bss.End) >= uintptr(bss.Start), "bss end before start")
		debug.Assert(uintptr(data.End) >= uintptr(data.Start), "data end before start")
		debug.Assert(uintptr(load) >= uintptr(data.End) ||
			uintptr(load)+data.Len() <= uintptr(data.Start), "data overlaps load image")
	}
	ZeroBSS[T](bss.Start, bss.End)
	InitData[T](data.Start, data.End, load)
}
