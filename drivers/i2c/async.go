package i2c

import (
	"periphcode-go/errcode"
	"periphcode-go/mmio"
)

// WriteAsync starts an interrupt-driven write and returns immediately. Only
// the START condition is issued here; every subsequent protocol step runs in
// HandleInterrupt. Completion is reported through cb, not the return value.
func (c *Controller) WriteAsync(addr uint8, data []byte, cb Callback) error {
	if cb == nil {
		return errcode.InvalidParams
	}
	if err := c.checkTransferArgs(data); err != nil {
		return err
	}

	c.txBuf = data
	c.rxBuf = nil
	c.idx = 0
	c.addr = addr
	c.cb = cb
	c.state = StateBusyTX

	c.generateStart()
	return nil
}

// ReadAsync starts an interrupt-driven read into data. See WriteAsync.
func (c *Controller) ReadAsync(addr uint8, data []byte, cb Callback) error {
	if cb == nil {
		return errcode.InvalidParams
	}
	if err := c.checkTransferArgs(data); err != nil {
		return err
	}

	c.rxBuf = data
	c.txBuf = nil
	c.idx = 0
	c.addr = addr
	c.cb = cb
	c.state = StateBusyRX

	mmio.SetBit(c.regs, regCR1, bitACK)
	c.generateStart()
	return nil
}

// HandleInterrupt advances an in-flight async transfer by exactly one
// protocol step. It reads SR1 once and evaluates the mutually exclusive
// event conditions in priority order; it never blocks. On completion the
// callback runs synchronously in this (interrupt) context.
func (c *Controller) HandleInterrupt() {
	sr1 := c.regs.Read32(regSR1)

	switch {
	case sr1&(1<<bitSB) != 0:
		// START went out: put the address and direction on the wire.
		dir := uint32(dirWrite)
		if c.state == StateBusyRX {
			dir = dirRead
		}
		c.regs.Write32(regDR, uint32(c.addr)<<1|dir)

	case sr1&(1<<bitADDR) != 0:
		// Address acknowledged; the SR2 read completes the ADDR clear
		// sequence (SR1 was read above).
		_ = c.regs.Read32(regSR2)
		if c.state == StateBusyRX && len(c.rxBuf) == 1 {
			// Single-byte read: NACK must already be staged for the
			// only byte.
			mmio.ClearBit(c.regs, regCR1, bitACK)
		}

	case sr1&(1<<bitTXE) != 0 && c.state == StateBusyTX:
		if c.idx < len(c.txBuf) {
			c.regs.Write32(regDR, uint32(c.txBuf[c.idx]))
			c.idx++
		} else if sr1&(1<<bitBTF) != 0 {
			c.generateStop()
			c.complete(nil)
		}
		// Otherwise: shift register still draining, wait for BTF.

	case sr1&(1<<bitRXNE) != 0 && c.state == StateBusyRX:
		c.rxBuf[c.idx] = byte(c.regs.Read32(regDR))
		c.idx++
		if c.idx == len(c.rxBuf)-1 {
			// One byte left in the pipeline: suppress its ACK and
			// schedule STOP now.
			mmio.ClearBit(c.regs, regCR1, bitACK)
			c.generateStop()
		}
		if c.idx >= len(c.rxBuf) {
			c.complete(nil)
		}

	case sr1&(1<<bitAF) != 0:
		// NACK from the device: clear the flag, release the bus, fail the
		// transfer.
		c.regs.Write32(regSR1, ^uint32(1<<bitAF))
		c.generateStop()
		c.state = StateError
		if c.cb != nil {
			c.cb(c.id, errcode.HWFault)
		}
	}
}

// complete finishes a successful async transfer from interrupt context.
func (c *Controller) complete(err error) {
	c.state = StateIdle
	if c.cb != nil {
		c.cb(c.id, err)
	}
}
