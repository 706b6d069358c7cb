//go:build tinygo

package mmio

import (
	"runtime/volatile"
	"unsafe"
)

// Mem is a Bus over a real memory-mapped register window.
type Mem struct {
	base unsafe.Pointer
}

// At returns a Mem rooted at the given physical base address.
func At(base uintptr) *Mem {
	return &Mem{base: unsafe.Pointer(base)}
}

func (m *Mem) Read32(off uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Add(m.base, off)))
}

func (m *Mem) Write32(off uintptr, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Add(m.base, off)), v)
}
