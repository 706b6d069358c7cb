// Package mmio is the register-access boundary between the protocol engines
// and the hardware. Engines talk to a Bus; on target that is a Mem pointing at
// the peripheral's base address, in tests it is a Sim register file.
package mmio

// Bus provides ordered 32-bit volatile access to a peripheral's register
// window. Offsets are byte offsets from the peripheral base.
type Bus interface {
	Read32(off uintptr) uint32
	Write32(off uintptr, v uint32)
}

// SetBit sets bit n of the register at off (read-modify-write).
func SetBit(b Bus, off uintptr, n uint) {
	b.Write32(off, b.Read32(off)|(1<<n))
}

// ClearBit clears bit n of the register at off (read-modify-write).
func ClearBit(b Bus, off uintptr, n uint) {
	b.Write32(off, b.Read32(off)&^(1<<n))
}

// HasBit reports whether bit n of the register at off is set.
func HasBit(b Bus, off uintptr, n uint) bool {
	return b.Read32(off)&(1<<n) != 0
}
