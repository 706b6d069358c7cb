package i2c

import (
	"periphcode-go/errcode"
	"periphcode-go/mmio"
)

// waitFlag spins until an SR1 flag reaches the expected level or the loop
// budget (timeoutMS x timeoutLoopCount iterations) runs out.
func (c *Controller) waitFlag(flag uint, expected bool, timeoutMS uint32) error {
	for counter := timeoutMS * timeoutLoopCount; counter > 0; counter-- {
		if mmio.HasBit(c.regs, regSR1, flag) == expected {
			return nil
		}
	}
	return errcode.Timeout
}

// sendAddress waits for the START condition to go out, puts the address and
// direction bit on the wire and waits for the slave to acknowledge it. The
// ADDR flag is cleared by the SR1/SR2 read sequence.
func (c *Controller) sendAddress(addr uint8, dir uint8, timeoutMS uint32) error {
	if err := c.waitFlag(bitSB, true, timeoutMS); err != nil {
		return err
	}
	c.regs.Write32(regDR, uint32(addr)<<1|uint32(dir))
	if err := c.waitFlag(bitADDR, true, timeoutMS); err != nil {
		return err
	}
	_ = c.regs.Read32(regSR1)
	_ = c.regs.Read32(regSR2)
	return nil
}

// WriteBlocking sends data to the device at addr, polling status flags
// directly. It returns once the final byte has finished on the wire (BTF) and
// STOP has been issued. Timeouts are loop-count bounded, not wall-clock.
func (c *Controller) WriteBlocking(addr uint8, data []byte, timeoutMS uint32) error {
	if err := c.checkTransferArgs(data); err != nil {
		return err
	}

	c.state = StateBusyTX

	// Wait for the bus to be released by a previous transaction. Failing
	// here means we never owned the bus, so no STOP is issued.
	busFree := false
	for counter := timeoutMS * timeoutLoopCount; counter > 0; counter-- {
		if !mmio.HasBit(c.regs, regSR2, bitBUSY) {
			busFree = true
			break
		}
	}
	if !busFree {
		c.state = StateError
		return errcode.Busy
	}

	c.generateStart()

	err := c.sendAddress(addr, dirWrite, timeoutMS)
	if err == nil {
		for i := 0; i < len(data) && err == nil; i++ {
			if err = c.waitFlag(bitTXE, true, timeoutMS); err == nil {
				c.regs.Write32(regDR, uint32(data[i]))
			}
		}
		if err == nil {
			err = c.waitFlag(bitBTF, true, timeoutMS)
		}
	}

	// STOP releases the bus whether the transfer succeeded or not.
	c.generateStop()

	if err != nil {
		c.state = StateError
		return err
	}
	c.state = StateIdle
	return nil
}

// ReadBlocking reads len(data) bytes from the device at addr. The hardware
// ACKs one byte ahead of the data register, so the ACK bit is cleared and
// STOP issued before the final byte is read out; that ordering is part of the
// bus protocol and must not be reordered.
func (c *Controller) ReadBlocking(addr uint8, data []byte, timeoutMS uint32) error {
	if err := c.checkTransferArgs(data); err != nil {
		return err
	}

	c.state = StateBusyRX

	mmio.SetBit(c.regs, regCR1, bitACK)
	c.generateStart()

	stopped := false
	err := c.sendAddress(addr, dirRead, timeoutMS)
	if err == nil {
		for i := 0; i < len(data) && err == nil; i++ {
			if i == len(data)-1 {
				mmio.ClearBit(c.regs, regCR1, bitACK)
				c.generateStop()
				stopped = true
			}
			if err = c.waitFlag(bitRXNE, true, timeoutMS); err == nil {
				data[i] = byte(c.regs.Read32(regDR))
			}
		}
	}

	if err != nil {
		// Abort: release the bus unless the last-byte STOP already went out.
		if !stopped {
			c.generateStop()
		}
		c.state = StateError
		return err
	}
	c.state = StateIdle
	return nil
}
