package ble

// Register byte offsets within the controller's window.
const (
	regCTRL    = 0x00 // control
	regSTATUS  = 0x04 // status
	regINTEN   = 0x08 // interrupt enable
	regINTFLAG = 0x0C // interrupt flags (write-one-to-clear)
	regTXDATA  = 0x10 // TX data FIFO
	regRXDATA  = 0x14 // RX data FIFO
	regTXLEN   = 0x18 // TX length
	regRXLEN   = 0x1C // RX length
	regADVCTRL = 0x20 // advertising control
	regCONN    = 0x24 // connection control
	regSCAN    = 0x28 // scan control
	regTXPOWER = 0x2C // TX power
	regMACL    = 0x30 // burned-in address, low word
	regMACH    = 0x34 // burned-in address, high half-word
)

// CTRL bits.
const (
	bitEnable    = 0
	bitReset     = 1
	bitAdvStart  = 4
	bitScanStart = 5
	bitConnInit  = 6
	bitTxStart   = 8
)

// STATUS bits.
const (
	bitReady      = 0
	bitConnected  = 1
	bitAdvActive  = 2
	bitScanActive = 3
	bitTxBusy     = 4
	bitRxReady    = 5
)

// Interrupt flag bits (INTEN / INTFLAG).
const (
	intConnected    = 0
	intDisconnected = 1
	intRxDone       = 2
	intTxDone       = 3
	intAdvDone      = 4
	intScanResult   = 5
	intError        = 7
)
