package i2c

// Register byte offsets within a controller's window.
const (
	regCR1   = 0x00 // control 1
	regCR2   = 0x04 // control 2 (pclk MHz, interrupt enables)
	regOAR1  = 0x08 // own address 1
	regOAR2  = 0x0C // own address 2
	regDR    = 0x10 // data
	regSR1   = 0x14 // status 1 (event flags)
	regSR2   = 0x18 // status 2 (bus flags; read clears ADDR with SR1)
	regCCR   = 0x1C // clock control
	regTRISE = 0x20 // rise time
)

// CR1 bits.
const (
	bitPE    = 0  // peripheral enable
	bitSTART = 8  // generate START
	bitSTOP  = 9  // generate STOP
	bitACK   = 10 // ACK generation
	bitSWRST = 15 // software reset
)

// CR2 bits.
const (
	bitITEVTEN = 9  // event interrupt enable
	bitITBUFEN = 10 // buffer interrupt enable
)

// SR1 bits.
const (
	bitSB   = 0  // START condition sent
	bitADDR = 1  // address sent and acknowledged
	bitBTF  = 2  // byte transfer finished
	bitRXNE = 6  // receiver not empty
	bitTXE  = 7  // transmitter empty
	bitAF   = 10 // acknowledge failure (NACK)
)

// SR2 bits.
const (
	bitMSL  = 0 // master mode
	bitBUSY = 1 // bus busy
)

// CCR fast-mode flag.
const ccrFastMode = 0x8000

// OAR1 bit 14 must read as one per the reference manual.
const oar1Always1 = 0x4000
