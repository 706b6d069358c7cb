package ble

import (
	"bytes"
	"testing"

	"periphcode-go/errcode"
	"periphcode-go/gic"
	"periphcode-go/mmio"
)

const bleLine = 48

var testPeer = MACAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}

// collector records delivered events by value.
type collector struct {
	events []Event
}

func (c *collector) cb(e *Event) { c.events = append(c.events, *e) }

func (c *collector) kinds() []EventKind {
	ks := make([]EventKind, len(c.events))
	for i := range c.events {
		ks[i] = c.events[i].Kind
	}
	return ks
}

// newRadioSim returns a register file modelling a controller that comes up
// ready, with a burned-in address and write-one-to-clear interrupt flags.
func newRadioSim() *mmio.Sim {
	regs := mmio.NewSim()
	regs.Poke(regSTATUS, 1<<bitReady)
	regs.Poke(regMACL, 0x44332211)
	regs.Poke(regMACH, 0x6655)
	regs.OnWrite[regINTFLAG] = func(cur, v uint32) uint32 { return cur &^ v }
	return regs
}

func newTestRadio(t *testing.T) (*Radio, *mmio.Sim, *collector) {
	t.Helper()
	regs := newRadioSim()
	r := New(regs, gic.New(mmio.NewSim(), mmio.NewSim()), bleLine)
	col := &collector{}
	if err := r.Init(DefaultConfig(), col.cb); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r, regs, col
}

// establish drives the radio to Connected and discards the connection event.
func establish(t *testing.T, r *Radio, regs *mmio.Sim, col *collector) {
	t.Helper()
	if err := r.Connect(testPeer); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	regs.SetBits(regINTFLAG, 1<<intConnected)
	r.HandleInterrupt()
	if r.State() != StateConnected {
		t.Fatalf("state = %v after connected interrupt, want connected", r.State())
	}
	r.Process()
	col.events = nil
}

func TestInitProgramsController(t *testing.T) {
	regs := newRadioSim()
	dist := mmio.NewSim()
	r := New(regs, gic.New(dist, mmio.NewSim()), bleLine)

	cfg := DefaultConfig()
	cfg.TxPowerDBm = -8
	if err := r.Init(cfg, func(*Event) {}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if got := regs.Peek(regTXPOWER); got != 12 {
		t.Errorf("TXPOWER = %d, want 12", got)
	}
	if got := regs.Peek(regADVCTRL); got != 100 {
		t.Errorf("ADVCTRL = %d, want 100", got)
	}
	wantInt := uint32(1<<intConnected | 1<<intDisconnected | 1<<intRxDone | 1<<intTxDone | 1<<intError)
	if got := regs.Peek(regINTEN); got != wantInt {
		t.Errorf("INTEN = %#x, want %#x", got, wantInt)
	}
	if !mmio.HasBit(regs, regCTRL, bitEnable) {
		t.Error("CTRL enable bit not set")
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v, want idle", r.State())
	}
	// Line 48 lives in distributor enable word 1, bit 16.
	if got := dist.Peek(0x104); got != 1<<16 {
		t.Errorf("ISENABLER1 = %#x, want %#x", got, uint32(1<<16))
	}
	if got := dist.Peek(0x430); got != 0x80 {
		t.Errorf("IPRIORITYR12 = %#x, want 0x80", got)
	}
}

func TestInitClampsTxPowerAtRegisterFloor(t *testing.T) {
	regs := newRadioSim()
	r := New(regs, gic.New(mmio.NewSim(), mmio.NewSim()), bleLine)
	cfg := DefaultConfig()
	cfg.TxPowerDBm = -30
	if err := r.Init(cfg, func(*Event) {}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := regs.Peek(regTXPOWER); got != 0 {
		t.Errorf("TXPOWER = %d, want 0", got)
	}
}

func TestInitRejectsBadArguments(t *testing.T) {
	regs := newRadioSim()
	r := New(regs, gic.New(mmio.NewSim(), mmio.NewSim()), bleLine)

	if err := r.Init(DefaultConfig(), nil); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("nil callback: err = %v, want invalid_params", err)
	}

	cfg := DefaultConfig()
	cfg.DeviceName = "this-device-name-is-far-too-long-to-advertise"
	if err := r.Init(cfg, func(*Event) {}); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("long name: err = %v, want invalid_params", err)
	}

	cfg = DefaultConfig()
	cfg.AdvIntervalMS = 5
	if err := r.Init(cfg, func(*Event) {}); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("short interval: err = %v, want invalid_params", err)
	}
	if r.State() != StateOff {
		t.Errorf("state = %v after rejected Init, want off", r.State())
	}
}

func TestInitReadyTimeoutIsHardFailure(t *testing.T) {
	regs := mmio.NewSim() // ready bit never asserts
	r := New(regs, gic.New(mmio.NewSim(), mmio.NewSim()), bleLine)

	err := r.Init(DefaultConfig(), func(*Event) {})
	if errcode.Of(err) != errcode.Timeout {
		t.Fatalf("err = %v, want timeout", err)
	}
	if r.State() != StateOff {
		t.Errorf("state = %v, want off", r.State())
	}
	if regs.Peek(regINTEN) != 0 {
		t.Error("INTEN programmed despite failed init")
	}
	if mmio.HasBit(regs, regCTRL, bitEnable) {
		t.Error("controller enabled despite failed init")
	}
	if err := r.StartAdvertising(); errcode.Of(err) != errcode.NotReady {
		t.Errorf("StartAdvertising after failed init = %v, want not_ready", err)
	}
}

func TestLocalAddressLatchedFromHardware(t *testing.T) {
	r, _, _ := newTestRadio(t)
	addr, err := r.LocalAddress()
	if err != nil {
		t.Fatalf("LocalAddress: %v", err)
	}
	want := MACAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	if addr != want {
		t.Errorf("address = %x, want %x", addr, want)
	}
}

func TestAdvertisingLifecycle(t *testing.T) {
	r, regs, col := newTestRadio(t)

	if err := r.StartAdvertising(); err != nil {
		t.Fatalf("StartAdvertising: %v", err)
	}
	if !mmio.HasBit(regs, regCTRL, bitAdvStart) {
		t.Error("CTRL adv-start bit not set")
	}
	if r.State() != StateAdvertising {
		t.Fatalf("state = %v, want advertising", r.State())
	}
	if err := r.StartAdvertising(); errcode.Of(err) != errcode.Busy {
		t.Errorf("second StartAdvertising = %v, want busy", err)
	}

	if err := r.StopAdvertising(); err != nil {
		t.Fatalf("StopAdvertising: %v", err)
	}
	if mmio.HasBit(regs, regCTRL, bitAdvStart) {
		t.Error("CTRL adv-start bit still set")
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v, want idle", r.State())
	}
	if err := r.StopAdvertising(); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("StopAdvertising while idle = %v, want invalid_params", err)
	}

	r.Process()
	want := []EventKind{EventAdvStarted, EventAdvStopped}
	got := col.kinds()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestConnectWhileAdvertisingIsBusy(t *testing.T) {
	r, regs, _ := newTestRadio(t)
	if err := r.StartAdvertising(); err != nil {
		t.Fatal(err)
	}
	if err := r.Connect(testPeer); errcode.Of(err) != errcode.Busy {
		t.Fatalf("Connect while advertising = %v, want busy", err)
	}
	if r.State() != StateAdvertising {
		t.Errorf("state = %v, want advertising unchanged", r.State())
	}
	if mmio.HasBit(regs, regCTRL, bitConnInit) {
		t.Error("CTRL conn-init bit set by rejected Connect")
	}
}

func TestConnectDisconnectLifecycle(t *testing.T) {
	r, regs, col := newTestRadio(t)

	if err := r.Connect(testPeer); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if r.State() != StateConnecting {
		t.Fatalf("state = %v, want connecting", r.State())
	}
	if !mmio.HasBit(regs, regCTRL, bitConnInit) {
		t.Error("CTRL conn-init bit not set")
	}

	regs.SetBits(regINTFLAG, 1<<intConnected)
	r.HandleInterrupt()
	if r.State() != StateConnected {
		t.Fatalf("state = %v, want connected", r.State())
	}
	if regs.Peek(regINTFLAG) != 0 {
		t.Errorf("INTFLAG = %#x after service, want 0", regs.Peek(regINTFLAG))
	}

	if err := r.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if r.State() != StateDisconnecting {
		t.Fatalf("state = %v, want disconnecting", r.State())
	}
	regs.SetBits(regINTFLAG, 1<<intDisconnected)
	r.HandleInterrupt()
	if r.State() != StateIdle {
		t.Fatalf("state = %v, want idle", r.State())
	}

	r.Process()
	got := col.kinds()
	if len(got) != 2 || got[0] != EventConnected || got[1] != EventDisconnected {
		t.Fatalf("events = %v, want [connected disconnected]", got)
	}
	if col.events[0].Peer != testPeer {
		t.Errorf("connected event peer = %x, want %x", col.events[0].Peer, testPeer)
	}
}

func TestDisconnectRequiresConnection(t *testing.T) {
	r, _, _ := newTestRadio(t)
	if err := r.Disconnect(); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("Disconnect while idle = %v, want invalid_params", err)
	}
}

func TestScanLifecycle(t *testing.T) {
	r, regs, _ := newTestRadio(t)

	if err := r.StartScan(0); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if r.State() != StateScanning || !mmio.HasBit(regs, regCTRL, bitScanStart) {
		t.Fatalf("state = %v, scan bit = %v", r.State(), mmio.HasBit(regs, regCTRL, bitScanStart))
	}
	if err := r.StartScan(0); errcode.Of(err) != errcode.Busy {
		t.Errorf("second StartScan = %v, want busy", err)
	}

	if err := r.StopScan(); err != nil {
		t.Fatalf("StopScan: %v", err)
	}
	if r.State() != StateIdle || mmio.HasBit(regs, regCTRL, bitScanStart) {
		t.Fatal("scan not stopped cleanly")
	}
	if err := r.StopScan(); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("StopScan while idle = %v, want invalid_params", err)
	}
}

func TestSendValidation(t *testing.T) {
	r, _, _ := newTestRadio(t)

	if err := r.Send(nil); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("empty payload: err = %v, want invalid_params", err)
	}
	if err := r.Send(make([]byte, MaxPayload+1)); errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("oversize payload: err = %v, want invalid_params", err)
	}
	if err := r.Send([]byte{1}); errcode.Of(err) != errcode.NotReady {
		t.Errorf("send while idle: err = %v, want not_ready", err)
	}
}

func TestSendWritesPayloadAndReportsCompletion(t *testing.T) {
	r, regs, col := newTestRadio(t)
	establish(t, r, regs, col)

	var tx []byte
	regs.OnWrite[regTXDATA] = func(cur, v uint32) uint32 {
		tx = append(tx, byte(v))
		return v
	}

	payload := []byte{0x0A, 0x0B, 0x0C}
	if err := r.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := regs.Peek(regTXLEN); got != 3 {
		t.Errorf("TXLEN = %d, want 3", got)
	}
	if !bytes.Equal(tx, payload) {
		t.Errorf("TXDATA writes = %x, want %x", tx, payload)
	}
	if !mmio.HasBit(regs, regCTRL, bitTxStart) {
		t.Error("CTRL tx-start bit not set")
	}

	regs.SetBits(regINTFLAG, 1<<intTxDone)
	r.HandleInterrupt()
	r.Process()
	if got := col.kinds(); len(got) != 1 || got[0] != EventDataSent {
		t.Errorf("events = %v, want [data_sent]", got)
	}
}

func TestSendTimesOutWhileTxBusy(t *testing.T) {
	r, regs, col := newTestRadio(t)
	establish(t, r, regs, col)
	regs.SetBits(regSTATUS, 1<<bitTxBusy)

	if err := r.Send([]byte{1, 2}); errcode.Of(err) != errcode.Timeout {
		t.Fatalf("err = %v, want timeout", err)
	}
	if regs.Peek(regTXLEN) != 0 {
		t.Error("TXLEN written despite timeout")
	}
	if mmio.HasBit(regs, regCTRL, bitTxStart) {
		t.Error("transmit started despite timeout")
	}
}

func TestReceiveStagedDataDeliveredBeforeQueue(t *testing.T) {
	r, regs, col := newTestRadio(t)
	establish(t, r, regs, col)

	rx := []uint32{0x11, 0x22, 0x33}
	i := 0
	regs.OnRead[regRXDATA] = func(cur uint32) uint32 {
		v := rx[i%len(rx)]
		i++
		return v
	}
	regs.Poke(regRXLEN, uint32(len(rx)))

	// One interrupt reporting both a completed transmit and received data.
	// The queued data-sent event must still come after the staged payload.
	regs.SetBits(regINTFLAG, 1<<intRxDone|1<<intTxDone)
	r.HandleInterrupt()
	r.Process()

	got := col.kinds()
	if len(got) != 2 || got[0] != EventDataReceived || got[1] != EventDataSent {
		t.Fatalf("events = %v, want [data_received data_sent]", got)
	}
	evt := col.events[0]
	if evt.Len != 3 || !bytes.Equal(evt.Data[:3], []byte{0x11, 0x22, 0x33}) {
		t.Errorf("payload = %x (len %d), want 112233", evt.Data[:evt.Len], evt.Len)
	}
	if evt.Peer != testPeer {
		t.Errorf("peer = %x, want %x", evt.Peer, testPeer)
	}

	// Staging is one-shot.
	col.events = nil
	r.Process()
	if len(col.events) != 0 {
		t.Errorf("second Process delivered %v", col.kinds())
	}
}

func TestReceiveLengthClampedToMaxPayload(t *testing.T) {
	r, regs, col := newTestRadio(t)
	establish(t, r, regs, col)

	reads := 0
	regs.OnRead[regRXDATA] = func(cur uint32) uint32 {
		reads++
		return 0x5A
	}
	regs.Poke(regRXLEN, 300)

	regs.SetBits(regINTFLAG, 1<<intRxDone)
	r.HandleInterrupt()
	r.Process()

	if reads != MaxPayload {
		t.Errorf("FIFO reads = %d, want %d", reads, MaxPayload)
	}
	if len(col.events) != 1 || col.events[0].Len != MaxPayload {
		t.Fatalf("events = %v, want one data_received of %d bytes", col.kinds(), MaxPayload)
	}
}

func TestInterruptServicesFlagsInFixedOrder(t *testing.T) {
	r, regs, col := newTestRadio(t)

	regs.SetBits(regINTFLAG, 1<<intConnected|1<<intDisconnected|1<<intError)
	r.HandleInterrupt()

	if r.State() != StateError {
		t.Errorf("state = %v, want error (last flag wins)", r.State())
	}
	if regs.Peek(regINTFLAG) != 0 {
		t.Errorf("INTFLAG = %#x, want all cleared", regs.Peek(regINTFLAG))
	}

	r.Process()
	want := []EventKind{EventConnected, EventDisconnected, EventError}
	got := col.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	// No flags pending: servicing again is a no-op.
	r.HandleInterrupt()
	col.events = nil
	r.Process()
	if len(col.events) != 0 {
		t.Errorf("spurious events %v", col.kinds())
	}
}

func TestDeinitReinitRoundTrip(t *testing.T) {
	r, regs, col := newTestRadio(t)

	if err := r.Deinit(); err != nil {
		t.Fatalf("Deinit: %v", err)
	}
	if regs.Peek(regINTEN) != 0 {
		t.Error("INTEN not cleared")
	}
	if mmio.HasBit(regs, regCTRL, bitEnable) {
		t.Error("controller still enabled")
	}
	if r.State() != StateOff {
		t.Errorf("state = %v, want off", r.State())
	}
	if err := r.StartAdvertising(); errcode.Of(err) != errcode.NotReady {
		t.Errorf("StartAdvertising after deinit = %v, want not_ready", err)
	}
	if _, err := r.LocalAddress(); errcode.Of(err) != errcode.NotReady {
		t.Errorf("LocalAddress after deinit = %v, want not_ready", err)
	}
	if err := r.Deinit(); errcode.Of(err) != errcode.NotReady {
		t.Errorf("second Deinit = %v, want not_ready", err)
	}

	if err := r.Init(DefaultConfig(), col.cb); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	if err := r.StartAdvertising(); err != nil {
		t.Errorf("StartAdvertising after re-init: %v", err)
	}
}
