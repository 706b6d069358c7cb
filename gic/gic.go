// Package gic drives a GICv1/v2-style generic interrupt controller: the
// distributor (per-line enable, priority, routing) and the CPU interface
// (acknowledge / end-of-interrupt). It owns every interrupt enable bit in the
// system; the peripheral engines never touch the controller directly.
package gic

import (
	"periphcode-go/errcode"
	"periphcode-go/mmio"
)

// MaxLines is the number of interrupt lines the distributor manages.
const MaxLines = 256

const linesPerEnableReg = 32

// Distributor register offsets.
const (
	distCTLR       = 0x000
	distISENABLER  = 0x100 // set-enable, 1 bit per line
	distICENABLER  = 0x180 // clear-enable, 1 bit per line
	distIPRIORITYR = 0x400 // priority, 1 byte per line
	distITARGETSR  = 0x800 // routing target, 1 byte per line
	distICFGR      = 0xC00 // trigger config, 2 bits per line
)

// CPU interface register offsets.
const (
	cpuCTLR = 0x000
	cpuPMR  = 0x004
	cpuIAR  = 0x00C
	cpuEOIR = 0x010
)

// SpuriousLine is returned by Acknowledge when no interrupt is pending.
const SpuriousLine = 0x3FF

// GIC is the interrupt controller coordinator. One instance per system.
type GIC struct {
	dist mmio.Bus
	cpu  mmio.Bus
}

// New returns a coordinator over the distributor and CPU interface windows.
func New(dist, cpu mmio.Bus) *GIC {
	return &GIC{dist: dist, cpu: cpu}
}

// Init brings up the distributor and CPU interface: all lines at lowest
// priority, shared lines targeted to CPU0, level-triggered, priority mask
// fully open. Returns hw_fault if the distributor does not come up, which the
// caller should treat as fatal.
func (g *GIC) Init() error {
	// Distributor off while reprogramming.
	g.dist.Write32(distCTLR, 0)

	// Lowest priority everywhere (4 priority bytes per word).
	for i := uintptr(0); i < MaxLines/4; i++ {
		g.dist.Write32(distIPRIORITYR+i*4, 0xFFFFFFFF)
	}

	// Route all shared lines (32 and up) to CPU0.
	for i := uintptr(8); i < MaxLines/4; i++ {
		g.dist.Write32(distITARGETSR+i*4, 0x01010101)
	}

	// All shared lines level-triggered (16 config fields per word).
	for i := uintptr(2); i < MaxLines/16; i++ {
		g.dist.Write32(distICFGR+i*4, 0)
	}

	g.dist.Write32(distCTLR, 1)

	// Priority mask open, CPU interface on.
	g.cpu.Write32(cpuPMR, 0xFF)
	g.cpu.Write32(cpuCTLR, 1)

	mmio.DSB()
	mmio.ISB()

	if g.dist.Read32(distCTLR)&1 == 0 {
		return errcode.HWFault
	}
	return nil
}

// Enable unmasks an interrupt line. The write is followed by a barrier so the
// enable is visible before interrupts are unmasked at the core.
func (g *GIC) Enable(line uint32) error {
	if line >= MaxLines {
		return errcode.InvalidParams
	}
	reg := uintptr(line/linesPerEnableReg) * 4
	g.dist.Write32(distISENABLER+reg, 1<<(line%linesPerEnableReg))
	mmio.DSB()
	return nil
}

// Disable masks an interrupt line.
func (g *GIC) Disable(line uint32) error {
	if line >= MaxLines {
		return errcode.InvalidParams
	}
	reg := uintptr(line/linesPerEnableReg) * 4
	g.dist.Write32(distICENABLER+reg, 1<<(line%linesPerEnableReg))
	mmio.DSB()
	return nil
}

// SetPriority programs a line's priority byte (lower value = higher
// priority). The priority table packs four lines per word, so this is a
// byte-level read-modify-write.
func (g *GIC) SetPriority(line uint32, priority uint8) error {
	if line >= MaxLines {
		return errcode.InvalidParams
	}
	reg := distIPRIORITYR + uintptr(line/4)*4
	shift := (line % 4) * 8
	v := g.dist.Read32(reg)
	v &^= 0xFF << shift
	v |= uint32(priority) << shift
	g.dist.Write32(reg, v)
	return nil
}

// Acknowledge reads the pending-interrupt register and returns the line id.
// This is the single authoritative source for which device interrupted.
// Reading it transfers the interrupt to this core; the caller must follow up
// with exactly one EndOfInterrupt for the returned line.
func (g *GIC) Acknowledge() uint32 {
	return g.cpu.Read32(cpuIAR) & 0x3FF
}

// EndOfInterrupt signals that handling of an acknowledged line has finished.
func (g *GIC) EndOfInterrupt(line uint32) {
	g.cpu.Write32(cpuEOIR, line)
	mmio.DSB()
}
