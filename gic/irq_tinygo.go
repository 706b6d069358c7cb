//go:build tinygo

package gic

import "device/arm"

// EnableIRQs unmasks IRQs at the core (CPSR.I). Not nesting-safe: callers
// that need save/restore semantics must keep their own depth counter.
func EnableIRQs() {
	arm.AsmFull("cpsie i", nil)
}

// DisableIRQs masks IRQs at the core (CPSR.I). Not nesting-safe.
func DisableIRQs() {
	arm.AsmFull("cpsid i", nil)
}
