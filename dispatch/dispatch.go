// Package dispatch routes acknowledged interrupt lines to registered
// handlers. It is the single entry point called from the low-level IRQ
// vector: acknowledge, run the handler, signal end-of-interrupt.
package dispatch

import (
	"periphcode-go/errcode"
	"periphcode-go/gic"
)

// Handler services one interrupt line. It runs in interrupt context and must
// not block.
type Handler func()

// Table maps interrupt lines to handlers for one GIC.
type Table struct {
	gic      *gic.GIC
	handlers [gic.MaxLines]Handler
}

// NewTable returns an empty dispatch table over the given controller.
func NewTable(g *gic.GIC) *Table {
	return &Table{gic: g}
}

// Register installs h for line, replacing any previous handler. A nil h
// unregisters the line.
func (t *Table) Register(line uint32, h Handler) error {
	if line >= gic.MaxLines {
		return errcode.InvalidParams
	}
	t.handlers[line] = h
	return nil
}

// Dispatch services one pending interrupt: acknowledge, invoke the handler
// if one is registered, then signal end-of-interrupt exactly once. A
// spurious acknowledge is ignored without an end-of-interrupt write. An
// unregistered line is still completed so it cannot wedge the CPU interface.
func (t *Table) Dispatch() {
	line := t.gic.Acknowledge()
	if line == gic.SpuriousLine {
		return
	}
	if line < gic.MaxLines {
		if h := t.handlers[line]; h != nil {
			h()
		}
	}
	t.gic.EndOfInterrupt(line)
}
