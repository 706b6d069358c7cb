//go:build !tinygo

package gic

// EnableIRQs is a no-op on regular Go (for testing). Not nesting-safe on
// target; see irq_tinygo.go.
func EnableIRQs() {}

// DisableIRQs is a no-op on regular Go (for testing).
func DisableIRQs() {}
