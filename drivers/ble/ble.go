// Package ble drives a memory-mapped BLE link-layer controller: a single
// radio with one connection-oriented link state machine and a bounded event
// queue bridging interrupt-reported events to the foreground loop.
//
// Concurrency model matches drivers/i2c: single core, foreground vs interrupt
// entry, no locks. Link state and the staging buffer are written by exactly
// one context at a time, partitioned by the state machine. The foreground
// must call Process periodically or queued events are never delivered.
package ble

import (
	"periphcode-go/errcode"
	"periphcode-go/gic"
	"periphcode-go/mmio"
	"periphcode-go/x/mathx"
)

const (
	// MaxPayload is the largest payload per send/receive, in bytes.
	MaxPayload = 244
	// MaxDeviceName bounds the advertised device name.
	MaxDeviceName = 32
)

// Spin budgets for the controller's hard waits. Loop counts, not wall-clock;
// see the note on i2c.timeoutLoopCount.
const (
	resetDelaySpins = 10_000
	readyWaitSpins  = 100_000
	txBusyWaitSpins = 100_000
)

// LinkState is the radio's link-layer state.
type LinkState uint8

const (
	StateOff LinkState = iota
	StateIdle
	StateAdvertising
	StateScanning
	StateConnecting
	StateConnected
	StateDisconnecting
	StateError
)

func (s LinkState) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateIdle:
		return "idle"
	case StateAdvertising:
		return "advertising"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateError:
		return "error"
	}
	return "unknown"
}

// EventKind tags an Event.
type EventKind uint8

const (
	EventNone EventKind = iota
	EventConnected
	EventDisconnected
	EventDataReceived
	EventDataSent
	EventAdvStarted
	EventAdvStopped
	EventScanResult
	EventError
)

// MACAddr is a 6-byte hardware address.
type MACAddr [6]byte

// Event is one link event. Data is a fixed buffer so events move through the
// queue without allocating; Len bytes of it are valid.
type Event struct {
	Kind EventKind
	Peer MACAddr
	Data [MaxPayload]byte
	Len  uint16
	RSSI int8
}

// EventCallback consumes one event per call. Hardware-sourced events arrive
// from interrupt context, staged/queued ones from the foreground Process
// call; implementations must tolerate both and must not retain the pointer.
type EventCallback func(*Event)

// Config holds link parameters for Init.
type Config struct {
	DeviceName        string
	AdvIntervalMS     uint16
	ConnIntervalMinMS uint16
	ConnIntervalMaxMS uint16
	TxPowerDBm        int8
	UseInterrupts     bool
}

// DefaultConfig returns a 100ms-advertising, interrupt-driven configuration.
func DefaultConfig() Config {
	return Config{
		DeviceName:        "ble-periph",
		AdvIntervalMS:     100,
		ConnIntervalMinMS: 20,
		ConnIntervalMaxMS: 40,
		UseInterrupts:     true,
	}
}

// Validate checks field ranges. Advertising interval follows the usual
// 20ms-10.24s window.
func (c Config) Validate() error {
	if len(c.DeviceName) > MaxDeviceName {
		return errcode.InvalidParams
	}
	if c.AdvIntervalMS != 0 && !mathx.Between(c.AdvIntervalMS, 20, 10240) {
		return errcode.InvalidParams
	}
	if c.ConnIntervalMinMS > c.ConnIntervalMaxMS {
		return errcode.InvalidParams
	}
	return nil
}

// Radio is the single BLE controller instance.
type Radio struct {
	regs mmio.Bus
	irq  *gic.GIC
	line uint32

	state LinkState
	cfg   Config
	cb    EventCallback

	local MACAddr
	peer  MACAddr

	queue eventQueue

	// Receive staging: the interrupt entry copies inbound bytes here and
	// raises rxPending; Process turns it into a DataReceived event.
	rxBuf     [MaxPayload]byte
	rxLen     uint16
	rxPending bool

	txComplete bool

	initialized bool
}

// New returns a Radio over the given register window and interrupt line.
// It does not touch hardware; call Init before use.
func New(regs mmio.Bus, irq *gic.GIC, line uint32) *Radio {
	return &Radio{regs: regs, irq: irq, line: line}
}

// Init pulses the controller reset, waits for it to report ready, then
// programs power, advertising interval and interrupt sources, and latches the
// burned-in hardware address. A ready-wait timeout is a hard failure: nothing
// else is configured and the radio stays Off.
func (r *Radio) Init(cfg Config, cb EventCallback) error {
	if cb == nil {
		return errcode.InvalidParams
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mmio.SetBit(r.regs, regCTRL, bitReset)
	for i := 0; i < resetDelaySpins; i++ {
	}
	mmio.ClearBit(r.regs, regCTRL, bitReset)

	ready := false
	for i := 0; i < readyWaitSpins; i++ {
		if mmio.HasBit(r.regs, regSTATUS, bitReady) {
			ready = true
			break
		}
	}
	if !ready {
		return errcode.Timeout
	}

	r.cfg = cfg
	r.cb = cb

	// The register holds dBm offset by +20 and never goes negative.
	r.regs.Write32(regTXPOWER, uint32(mathx.Max(int32(cfg.TxPowerDBm)+20, 0)))
	r.regs.Write32(regADVCTRL, uint32(cfg.AdvIntervalMS))

	macLow := r.regs.Read32(regMACL)
	macHigh := r.regs.Read32(regMACH)
	r.local = MACAddr{
		byte(macLow), byte(macLow >> 8), byte(macLow >> 16), byte(macLow >> 24),
		byte(macHigh), byte(macHigh >> 8),
	}

	if cfg.UseInterrupts {
		r.regs.Write32(regINTEN,
			1<<intConnected|1<<intDisconnected|1<<intRxDone|1<<intTxDone|1<<intError)
		if err := r.irq.SetPriority(r.line, 0x80); err != nil {
			return err
		}
		if err := r.irq.Enable(r.line); err != nil {
			return err
		}
	}

	mmio.SetBit(r.regs, regCTRL, bitEnable)

	r.queue.reset()
	r.rxPending = false
	r.txComplete = false
	r.state = StateIdle
	r.initialized = true
	return nil
}

// Deinit disables interrupts and the controller; the link goes Off.
func (r *Radio) Deinit() error {
	if !r.initialized {
		return errcode.NotReady
	}
	r.regs.Write32(regINTEN, 0)
	_ = r.irq.Disable(r.line)
	mmio.ClearBit(r.regs, regCTRL, bitEnable)
	r.state = StateOff
	r.initialized = false
	return nil
}

// StartAdvertising begins advertising. Valid from Idle or Connected; the
// AdvStarted event is queued synchronously since the command must report its
// own effect.
func (r *Radio) StartAdvertising() error {
	if !r.initialized {
		return errcode.NotReady
	}
	if r.state != StateIdle && r.state != StateConnected {
		return errcode.Busy
	}
	mmio.SetBit(r.regs, regCTRL, bitAdvStart)
	r.state = StateAdvertising
	_ = r.queue.push(&Event{Kind: EventAdvStarted})
	return nil
}

// StopAdvertising halts advertising and returns the link to Idle.
func (r *Radio) StopAdvertising() error {
	if !r.initialized {
		return errcode.NotReady
	}
	if r.state != StateAdvertising {
		return errcode.InvalidParams
	}
	mmio.ClearBit(r.regs, regCTRL, bitAdvStart)
	r.state = StateIdle
	_ = r.queue.push(&Event{Kind: EventAdvStopped})
	return nil
}

// StartScan begins scanning. durationMS is accepted for API compatibility but
// scanning is currently continuous until StopScan; a duration-bound scan is a
// known limitation.
func (r *Radio) StartScan(durationMS uint32) error {
	_ = durationMS
	if !r.initialized {
		return errcode.NotReady
	}
	if r.state != StateIdle {
		return errcode.Busy
	}
	mmio.SetBit(r.regs, regCTRL, bitScanStart)
	r.state = StateScanning
	return nil
}

// StopScan halts scanning.
func (r *Radio) StopScan() error {
	if !r.initialized {
		return errcode.NotReady
	}
	if r.state != StateScanning {
		return errcode.InvalidParams
	}
	mmio.ClearBit(r.regs, regCTRL, bitScanStart)
	r.state = StateIdle
	return nil
}

// Connect initiates a connection to the peer. The link enters Connecting;
// the Connected transition arrives later through the interrupt entry.
func (r *Radio) Connect(addr MACAddr) error {
	if !r.initialized {
		return errcode.NotReady
	}
	if r.state != StateIdle && r.state != StateScanning {
		return errcode.Busy
	}
	r.peer = addr
	mmio.SetBit(r.regs, regCTRL, bitConnInit)
	r.state = StateConnecting
	return nil
}

// Disconnect tears down the current connection.
func (r *Radio) Disconnect() error {
	if !r.initialized {
		return errcode.NotReady
	}
	if r.state != StateConnected {
		return errcode.InvalidParams
	}
	mmio.ClearBit(r.regs, regCTRL, bitConnInit)
	r.state = StateDisconnecting
	return nil
}

// Send transmits one payload on the connected link. Exactly one transmit is
// outstanding at a time: overlap is prevented by the Connected-state
// requirement plus the hardware busy check, not a software flag. A busy-wait
// timeout fails without sending.
func (r *Radio) Send(data []byte) error {
	if len(data) == 0 || len(data) > MaxPayload {
		return errcode.InvalidParams
	}
	if !r.initialized {
		return errcode.NotReady
	}
	if r.state != StateConnected {
		return errcode.NotReady
	}

	free := false
	for i := 0; i < txBusyWaitSpins; i++ {
		if !mmio.HasBit(r.regs, regSTATUS, bitTxBusy) {
			free = true
			break
		}
	}
	if !free {
		return errcode.Timeout
	}

	r.regs.Write32(regTXLEN, uint32(len(data)))
	for _, b := range data {
		r.regs.Write32(regTXDATA, uint32(b))
	}
	r.txComplete = false
	mmio.SetBit(r.regs, regCTRL, bitTxStart)
	return nil
}

// State returns the current link state. Pure read.
func (r *Radio) State() LinkState { return r.state }

// LocalAddress returns the controller's burned-in hardware address.
func (r *Radio) LocalAddress() (MACAddr, error) {
	if !r.initialized {
		return MACAddr{}, errcode.NotReady
	}
	return r.local, nil
}
