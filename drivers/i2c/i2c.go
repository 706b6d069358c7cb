// Package i2c drives an STM32-style I2C master controller through its
// memory-mapped registers. Each physical controller gets one Controller
// instance; transfers run either blocking (busy-polled) or asynchronously,
// with the protocol advanced step by step inside HandleInterrupt.
//
// Concurrency model: single core, no threads. A Controller's transfer fields
// are written by the issuing foreground call only while transitioning
// Idle -> Busy*, and by HandleInterrupt only while Busy*. The state machine
// partitions the two contexts, so no locking is used. Blocking and
// interrupt-driven transfers must not be mixed on one instance; the state
// check rejects the attempt with busy.
package i2c

import (
	"periphcode-go/errcode"
	"periphcode-go/gic"
	"periphcode-go/mmio"
)

// System clock feeding the controllers, in Hz.
const systemClockHz = 100_000_000

// Spin iterations per requested millisecond of timeout. This is an
// uncalibrated loop count, not wall-clock time: a larger timeout buys
// proportionally more spins. Kept for behavioural parity with the reference
// hardware bring-up rather than replaced with a timer.
const timeoutLoopCount = 10000

// State is the transfer state of one controller.
type State uint8

const (
	StateIdle State = iota
	StateBusyTX
	StateBusyRX
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusyTX:
		return "busy_tx"
	case StateBusyRX:
		return "busy_rx"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Transfer direction on the wire (R/W bit of the address byte).
const (
	dirWrite = 0
	dirRead  = 1
)

// Callback reports async transfer completion. It is invoked exactly once per
// transfer, from interrupt context: implementations must not block and must
// tolerate reentry.
type Callback func(id uint8, err error)

// Config holds bus parameters for Init.
type Config struct {
	BusSpeedHz    uint32 // 100000 standard, 400000 fast
	OwnAddress    uint8  // 7-bit own address for slave-mode ACK; 0 = none
	UseInterrupts bool   // arm the controller's GIC line and event sources
}

// DefaultConfig returns a fast-mode, interrupt-driven configuration.
func DefaultConfig() Config {
	return Config{BusSpeedHz: 400_000, UseInterrupts: true}
}

// Controller is one physical I2C master instance.
type Controller struct {
	id   uint8
	regs mmio.Bus
	irq  *gic.GIC
	line uint32

	state State

	// In-flight transfer. The buffer is caller-owned and borrowed exclusively
	// for the duration of the transfer; the caller must not touch it until
	// the callback fires.
	txBuf []byte
	rxBuf []byte
	idx   int
	addr  uint8
	cb    Callback

	initialized   bool
	useInterrupts bool
}

// New returns a Controller over the given register window and interrupt line.
// It does not touch hardware; call Init before use.
func New(id uint8, regs mmio.Bus, irq *gic.GIC, line uint32) *Controller {
	return &Controller{id: id, regs: regs, irq: irq, line: line}
}

// ID returns the controller identity passed to New.
func (c *Controller) ID() uint8 { return c.id }

// State returns the current transfer state. Pure read.
func (c *Controller) State() State { return c.state }

// Init resets the controller and programs clocking, rise time, optional own
// address and interrupt sources. The instance ends up Idle and ready for
// transfers.
func (c *Controller) Init(cfg Config) error {
	if cfg.BusSpeedHz == 0 {
		return errcode.InvalidParams
	}

	// Software reset pulse.
	mmio.SetBit(c.regs, regCR1, bitSWRST)
	mmio.ClearBit(c.regs, regCR1, bitSWRST)

	// CR2 carries the peripheral clock in MHz.
	pclkMHz := uint32(systemClockHz / 1_000_000)
	c.regs.Write32(regCR2, pclkMHz&0x3F)

	// Clock control: standard mode divides by 2x the bus speed, fast mode by
	// 3x (2:1 duty) with the fast-mode bit set.
	var ccr uint32
	if cfg.BusSpeedHz <= 100_000 {
		ccr = systemClockHz / (cfg.BusSpeedHz * 2)
	} else {
		ccr = systemClockHz/(cfg.BusSpeedHz*3) | ccrFastMode
	}
	c.regs.Write32(regCCR, ccr)

	// Maximum rise time: 1000ns for standard mode, 300ns for fast mode.
	if cfg.BusSpeedHz <= 100_000 {
		c.regs.Write32(regTRISE, pclkMHz+1)
	} else {
		c.regs.Write32(regTRISE, pclkMHz*300/1000+1)
	}

	if cfg.OwnAddress != 0 {
		c.regs.Write32(regOAR1, uint32(cfg.OwnAddress)<<1|oar1Always1)
	}

	mmio.SetBit(c.regs, regCR1, bitPE)
	mmio.SetBit(c.regs, regCR1, bitACK)

	c.useInterrupts = cfg.UseInterrupts
	if cfg.UseInterrupts {
		if err := c.irq.SetPriority(c.line, 0x80); err != nil {
			return err
		}
		if err := c.irq.Enable(c.line); err != nil {
			return err
		}
		c.regs.Write32(regCR2, c.regs.Read32(regCR2)|1<<bitITEVTEN|1<<bitITBUFEN)
		mmio.DSB()
	}

	c.initialized = true
	c.state = StateIdle
	return nil
}

// Deinit disables the controller and its interrupt line. The instance must be
// reinitialized before further use.
func (c *Controller) Deinit() error {
	mmio.ClearBit(c.regs, regCR1, bitPE)
	_ = c.irq.Disable(c.line)
	c.initialized = false
	c.state = StateIdle
	return nil
}

// checkTransferArgs runs the validation shared by all four transfer entry
// points. Fields are left untouched on any rejection.
func (c *Controller) checkTransferArgs(data []byte) error {
	if len(data) == 0 {
		return errcode.InvalidParams
	}
	if !c.initialized {
		return errcode.NotReady
	}
	if c.state != StateIdle {
		return errcode.Busy
	}
	return nil
}

func (c *Controller) generateStart() {
	mmio.SetBit(c.regs, regCR1, bitSTART)
}

// generateStop issues STOP and a barrier so the bus release is visible
// before the caller's next register access.
func (c *Controller) generateStop() {
	mmio.SetBit(c.regs, regCR1, bitSTOP)
	mmio.DSB()
}
