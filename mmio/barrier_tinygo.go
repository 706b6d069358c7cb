//go:build tinygo

package mmio

import "device/arm"

// DSB issues a data synchronization barrier: all register writes issued
// before this point are visible before any instruction after it executes.
func DSB() {
	arm.AsmFull("dsb", nil)
}

// ISB issues an instruction synchronization barrier.
func ISB() {
	arm.AsmFull("isb", nil)
}
