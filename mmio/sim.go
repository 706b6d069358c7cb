package mmio

// Sim is a simulated register file. It backs the engines in tests and in the
// host demo, standing in for the real peripheral. Hooks let a harness model
// hardware behaviour: status flags that assert themselves, registers with
// read side effects, write-one-to-clear flags.
type Sim struct {
	regs map[uintptr]uint32

	// OnRead, if set for an offset, is called with the stored value and its
	// return value is both stored back and returned to the caller.
	OnRead map[uintptr]func(cur uint32) uint32

	// OnWrite, if set for an offset, is called instead of the plain store.
	// It receives the stored value and the written value and returns what to
	// store. This models write-one-to-clear and self-clearing control bits.
	OnWrite map[uintptr]func(cur, v uint32) uint32
}

// NewSim returns an empty register file; all registers read as zero.
func NewSim() *Sim {
	return &Sim{
		regs:    make(map[uintptr]uint32),
		OnRead:  make(map[uintptr]func(uint32) uint32),
		OnWrite: make(map[uintptr]func(uint32, uint32) uint32),
	}
}

func (s *Sim) Read32(off uintptr) uint32 {
	v := s.regs[off]
	if f, ok := s.OnRead[off]; ok {
		v = f(v)
		s.regs[off] = v
	}
	return v
}

func (s *Sim) Write32(off uintptr, v uint32) {
	if f, ok := s.OnWrite[off]; ok {
		s.regs[off] = f(s.regs[off], v)
		return
	}
	s.regs[off] = v
}

// Poke stores a value directly, bypassing hooks. Test harnesses use it to
// assert hardware flags as an interrupt source would.
func (s *Sim) Poke(off uintptr, v uint32) { s.regs[off] = v }

// Peek reads a value directly, bypassing hooks.
func (s *Sim) Peek(off uintptr) uint32 { return s.regs[off] }

// SetBits ORs bits into a register, bypassing hooks.
func (s *Sim) SetBits(off uintptr, mask uint32) { s.regs[off] |= mask }

// ClearBits clears bits in a register, bypassing hooks.
func (s *Sim) ClearBits(off uintptr, mask uint32) { s.regs[off] &^= mask }
