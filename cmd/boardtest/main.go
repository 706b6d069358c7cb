// cmd/boardtest/main.go
//
// Host-side exercise of the peripheral stack: the real drivers run over
// simulated register files while a scripted "central" connects, issues
// commands over the link, and checks the sensor round trip. The interrupt
// path goes through the dispatch table exactly as the firmware's IRQ vector
// would drive it.
package main

import (
	"fmt"

	"periphcode-go/config"
	"periphcode-go/dispatch"
	"periphcode-go/drivers/ble"
	"periphcode-go/drivers/i2c"
	"periphcode-go/gic"
	"periphcode-go/mmio"
)

// ---------- Configuration ----------

const (
	boardID        = "virt-a7"
	tempSensorAddr = 0x48
)

// Link command bytes, first byte of every inbound frame.
const (
	cmdReadTemp = 0x01
	cmdEcho     = 0xFF
)

// ---------- Simulated hardware ----------

// Register offsets and bits of the modelled controllers. These mirror the
// hardware layout the drivers are written against.
const (
	cpuIAR = 0x00C

	i2cRegCR1 = 0x00
	i2cRegDR  = 0x10
	i2cRegSR1 = 0x14
	i2cRegSR2 = 0x18

	i2cCR1Start = 1 << 8
	i2cCR1Stop  = 1 << 9
	i2cSR1SB    = 1 << 0
	i2cSR1ADDR  = 1 << 1
	i2cSR1BTF   = 1 << 2
	i2cSR1RXNE  = 1 << 6
	i2cSR1TXE   = 1 << 7

	bleRegCTRL    = 0x00
	bleRegSTATUS  = 0x04
	bleRegINTFLAG = 0x0C
	bleRegTXDATA  = 0x10
	bleRegRXDATA  = 0x14
	bleRegRXLEN   = 0x1C
	bleRegMACL    = 0x30
	bleRegMACH    = 0x34

	bleCTRLTxStart  = 1 << 8
	bleSTATUSReady  = 1 << 0
	bleIntConnected = 1 << 0
	bleIntDisc      = 1 << 1
	bleIntRxDone    = 1 << 2
	bleIntTxDone    = 1 << 3
	bleIntError     = 1 << 7
)

// simBoard owns the register files and a pending-interrupt list. Models poke
// flags and raise lines; pump replays them through the dispatch table the way
// the CPU's IRQ vector would.
type simBoard struct {
	dist, cpu *mmio.Sim
	i2cRegs   *mmio.Sim
	i2c2Regs  *mmio.Sim
	bleRegs   *mmio.Sim
	table     *dispatch.Table
	pending   []uint32
}

func newSimBoard() *simBoard {
	sb := &simBoard{
		dist:    mmio.NewSim(),
		cpu:     mmio.NewSim(),
		i2cRegs:  mmio.NewSim(),
		i2c2Regs: mmio.NewSim(),
		bleRegs:  mmio.NewSim(),
	}
	// The second bus has an always-ready device: every flag a blocking write
	// polls for reads as asserted.
	sb.i2c2Regs.Poke(i2cRegSR1, i2cSR1SB|i2cSR1ADDR|i2cSR1TXE|i2cSR1BTF)
	sb.bleRegs.Poke(bleRegSTATUS, bleSTATUSReady)
	sb.bleRegs.Poke(bleRegMACL, 0xD0C1B0A0)
	sb.bleRegs.Poke(bleRegMACH, 0xF0E0)
	sb.bleRegs.OnWrite[bleRegINTFLAG] = func(cur, v uint32) uint32 { return cur &^ v }
	return sb
}

func (sb *simBoard) raise(line uint32) { sb.pending = append(sb.pending, line) }

func (sb *simBoard) pump() {
	for len(sb.pending) > 0 {
		line := sb.pending[0]
		sb.pending = sb.pending[1:]
		sb.cpu.Poke(cpuIAR, line)
		sb.table.Dispatch()
	}
}

// attachTempSensor models a 2-byte-register temperature sensor on the I2C
// bus: START raises SB, the address write raises ADDR, the SR2 read arms the
// first data byte, and each DR read serves the next byte.
func (sb *simBoard) attachTempSensor(line uint32, reading []byte) {
	regs := sb.i2cRegs
	idx := 0

	regs.OnWrite[i2cRegCR1] = func(cur, v uint32) uint32 {
		if v&i2cCR1Start != 0 {
			idx = 0
			regs.SetBits(i2cRegSR1, i2cSR1SB)
			sb.raise(line)
		}
		// START and STOP self-clear like the real control register.
		return v &^ (i2cCR1Start | i2cCR1Stop)
	}
	regs.OnWrite[i2cRegDR] = func(cur, v uint32) uint32 {
		if regs.Peek(i2cRegSR1)&i2cSR1SB != 0 {
			regs.ClearBits(i2cRegSR1, i2cSR1SB)
			regs.SetBits(i2cRegSR1, i2cSR1ADDR)
			sb.raise(line)
		}
		return v
	}
	regs.OnRead[i2cRegSR2] = func(cur uint32) uint32 {
		if regs.Peek(i2cRegSR1)&i2cSR1ADDR != 0 {
			regs.ClearBits(i2cRegSR1, i2cSR1ADDR)
			regs.SetBits(i2cRegSR1, i2cSR1RXNE)
			sb.raise(line)
		}
		return cur
	}
	regs.OnRead[i2cRegDR] = func(cur uint32) uint32 {
		if idx >= len(reading) {
			return cur
		}
		v := uint32(reading[idx])
		idx++
		if idx < len(reading) {
			sb.raise(line)
		} else {
			regs.ClearBits(i2cRegSR1, i2cSR1RXNE)
		}
		return v
	}
}

// central is the scripted peer on the far side of the BLE link.
type central struct {
	sb     *simBoard
	line   uint32
	frame  []byte
	frames [][]byte // frames the radio transmitted to us
}

func (c *central) attach() {
	regs := c.sb.bleRegs
	regs.OnWrite[bleRegTXDATA] = func(cur, v uint32) uint32 {
		c.frame = append(c.frame, byte(v))
		return v
	}
	regs.OnWrite[bleRegCTRL] = func(cur, v uint32) uint32 {
		if v&bleCTRLTxStart != 0 && cur&bleCTRLTxStart == 0 {
			c.frames = append(c.frames, c.frame)
			c.frame = nil
			regs.SetBits(bleRegINTFLAG, bleIntTxDone)
			c.sb.raise(c.line)
		}
		return v &^ bleCTRLTxStart
	}
}

func (c *central) connect() {
	c.sb.bleRegs.SetBits(bleRegINTFLAG, bleIntConnected)
	c.sb.raise(c.line)
}

func (c *central) disconnect() {
	c.sb.bleRegs.SetBits(bleRegINTFLAG, bleIntDisc)
	c.sb.raise(c.line)
}

func (c *central) send(data []byte) {
	regs := c.sb.bleRegs
	i := 0
	regs.OnRead[bleRegRXDATA] = func(cur uint32) uint32 {
		if i >= len(data) {
			return cur
		}
		v := uint32(data[i])
		i++
		return v
	}
	regs.Poke(bleRegRXLEN, uint32(len(data)))
	regs.SetBits(bleRegINTFLAG, bleIntRxDone)
	c.sb.raise(c.line)
}

func (c *central) induceError() {
	c.sb.bleRegs.SetBits(bleRegINTFLAG, bleIntError)
	c.sb.raise(c.line)
}

// ---------- Application ----------

// app is the firmware-side logic: command handling over the link, the
// sensor round trip, and error recovery. Flags set from event context are
// serviced by the foreground loop.
type app struct {
	radio *ble.Radio
	temp  *i2c.Controller
	cfg   ble.Config

	tempBuf      [2]byte
	wantTempRead bool
	tempReady    bool
	needRecover  bool
}

func (a *app) onEvent(e *ble.Event) {
	switch e.Kind {
	case ble.EventConnected:
		fmt.Printf("[ble] central connected\n")
	case ble.EventDisconnected:
		fmt.Printf("[ble] central disconnected, advertising again\n")
		_ = a.radio.StartAdvertising()
	case ble.EventDataReceived:
		a.onCommand(e.Data[:e.Len])
	case ble.EventDataSent:
		fmt.Printf("[ble] frame delivered\n")
	case ble.EventAdvStarted:
		fmt.Printf("[ble] advertising\n")
	case ble.EventError:
		fmt.Printf("[ble] link error, scheduling recovery\n")
		a.needRecover = true
	}
}

func (a *app) onCommand(frame []byte) {
	if len(frame) == 0 {
		return
	}
	switch frame[0] {
	case cmdReadTemp:
		a.wantTempRead = true
	case cmdEcho:
		if err := a.radio.Send(frame); err != nil {
			fmt.Printf("[app] echo failed: %v\n", err)
		}
	default:
		fmt.Printf("[app] unknown command %#02x\n", frame[0])
	}
}

func (a *app) onTempDone(id uint8, err error) {
	if err != nil {
		fmt.Printf("[i2c%d] sensor read failed: %v\n", id, err)
		return
	}
	a.tempReady = true
}

// service runs the deferred foreground work. Called once per loop pass.
func (a *app) service() {
	if a.wantTempRead {
		a.wantTempRead = false
		if err := a.temp.ReadAsync(tempSensorAddr, a.tempBuf[:], a.onTempDone); err != nil {
			fmt.Printf("[app] sensor read not started: %v\n", err)
		}
	}
	if a.tempReady {
		a.tempReady = false
		// Raw big-endian sensor register, 1/256 degC per LSB.
		centi := (int32(a.tempBuf[0])<<8 | int32(a.tempBuf[1])) * 100 / 256
		fmt.Printf("[app] temperature %d.%02d C\n", centi/100, centi%100)
		if err := a.radio.Send([]byte{cmdReadTemp, a.tempBuf[0], a.tempBuf[1]}); err != nil {
			fmt.Printf("[app] report failed: %v\n", err)
		}
	}
	if a.needRecover {
		a.needRecover = false
		_ = a.radio.Deinit()
		if err := a.radio.Init(a.cfg, a.onEvent); err != nil {
			fmt.Printf("[app] recovery init failed: %v\n", err)
			return
		}
		_ = a.radio.StartAdvertising()
	}
}

// ---------- Main ----------

func main() {
	board, err := config.Load(boardID)
	if err != nil {
		fmt.Printf("[boardtest] config: %v\n", err)
		return
	}
	fmt.Printf("[boardtest] board %s: gic %#x/%#x, %d i2c ports, ble at %#x line %d\n",
		board.Name, board.GIC.DistBase, board.GIC.CPUBase,
		len(board.I2C), board.BLE.Base, board.BLE.Line)

	sb := newSimBoard()
	// Sensor holding 25.5 degC (0x1980 raw).
	sb.attachTempSensor(board.I2C[0].Line, []byte{0x19, 0x80})

	g := gic.New(sb.dist, sb.cpu)
	if err := g.Init(); err != nil {
		fmt.Printf("[boardtest] gic init: %v\n", err)
		return
	}
	sb.table = dispatch.NewTable(g)

	temp := i2c.New(1, sb.i2cRegs, g, board.I2C[0].Line)
	if err := temp.Init(board.I2C[0].Cfg); err != nil {
		fmt.Printf("[boardtest] i2c1 init: %v\n", err)
		return
	}

	// Second bus runs polled; probe the expander at 0x20 as a bring-up check.
	aux := i2c.New(2, sb.i2c2Regs, g, board.I2C[1].Line)
	if err := aux.Init(board.I2C[1].Cfg); err != nil {
		fmt.Printf("[boardtest] i2c2 init: %v\n", err)
		return
	}
	if err := aux.WriteBlocking(0x20, []byte{0x00}, 10); err != nil {
		fmt.Printf("[boardtest] i2c2 probe: %v\n", err)
	} else {
		fmt.Printf("[boardtest] i2c2 probe ok, state %v\n", aux.State())
	}

	radio := ble.New(sb.bleRegs, g, board.BLE.Line)
	a := &app{radio: radio, temp: temp, cfg: board.BLE.Cfg}
	if err := radio.Init(board.BLE.Cfg, a.onEvent); err != nil {
		fmt.Printf("[boardtest] ble init: %v\n", err)
		return
	}
	if addr, err := radio.LocalAddress(); err == nil {
		fmt.Printf("[boardtest] local address %02x:%02x:%02x:%02x:%02x:%02x\n",
			addr[5], addr[4], addr[3], addr[2], addr[1], addr[0])
	}

	_ = sb.table.Register(board.I2C[0].Line, temp.HandleInterrupt)
	_ = sb.table.Register(board.BLE.Line, radio.HandleInterrupt)

	peer := &central{sb: sb, line: board.BLE.Line}
	peer.attach()

	if err := radio.StartAdvertising(); err != nil {
		fmt.Printf("[boardtest] advertise: %v\n", err)
		return
	}

	// One foreground pass: service pending interrupts, deliver link events,
	// then run deferred application work.
	step := func() {
		sb.pump()
		radio.Process()
		a.service()
		sb.pump()
	}
	step()

	// Scripted session.
	peer.connect()
	step()

	peer.send([]byte{cmdReadTemp})
	step()
	step() // sensor completion lands one pass later

	peer.send([]byte{cmdEcho, 0xDE, 0xAD})
	step()

	peer.induceError()
	step()
	step()

	peer.connect()
	step()
	peer.disconnect()
	step()

	fmt.Printf("[boardtest] central received %d frames:\n", len(peer.frames))
	for i, f := range peer.frames {
		fmt.Printf("  %d: % x\n", i, f)
	}
	fmt.Printf("[boardtest] final link state: %v\n", radio.State())
}
