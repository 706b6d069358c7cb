//go:build !tinygo

package mmio

// DSB is a no-op on regular Go (for testing).
func DSB() {}

// ISB is a no-op on regular Go (for testing).
func ISB() {}
