package i2c

import "tinygo.org/x/drivers"

// Bus adapts a Controller to the tinygo drivers.I2C Tx shape so device
// drivers written against that interface can run on top of the engine.
// Transfers run on the blocking path.
type Bus struct {
	c         *Controller
	timeoutMS uint32
}

var _ drivers.I2C = Bus{}

// NewBus wraps a Controller with a per-operation timeout budget.
func NewBus(c *Controller, timeoutMS uint32) Bus {
	if timeoutMS == 0 {
		timeoutMS = 25
	}
	return Bus{c: c, timeoutMS: timeoutMS}
}

// Tx performs a write (if w is non-empty) followed by a read (if r is
// non-empty), each as its own START..STOP transaction.
func (b Bus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		if err := b.c.WriteBlocking(uint8(addr), w, b.timeoutMS); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return b.c.ReadBlocking(uint8(addr), r, b.timeoutMS)
	}
	return nil
}
