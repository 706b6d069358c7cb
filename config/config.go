// Package config resolves embedded per-board JSON into peripheral
// configuration: register windows, interrupt lines, and driver parameters.
// Configs live in flash as JSON text; Load parses the one matching the board
// ID baked into the firmware.
package config

import (
	"strconv"

	"periphcode-go/drivers/ble"
	"periphcode-go/drivers/i2c"
	"periphcode-go/errcode"

	"github.com/andreyvit/tinyjson"
)

// EmbeddedConfigLookup allows overriding how board configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// GICWindows locates the interrupt controller's two register banks.
type GICWindows struct {
	DistBase uintptr
	CPUBase  uintptr
}

// I2CPort describes one I2C controller instance.
type I2CPort struct {
	Base uintptr
	Line uint32
	Cfg  i2c.Config
}

// BLEPort describes the board's radio.
type BLEPort struct {
	Base uintptr
	Line uint32
	Cfg  ble.Config
}

// Board is a parsed board description.
type Board struct {
	Name string
	GIC  GICWindows
	I2C  []I2CPort
	BLE  BLEPort
}

// Load parses the embedded config for the given board ID.
func Load(board string) (*Board, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return nil, &errcode.E{C: errcode.UnknownBoard, Op: "config.Load", Msg: board}
	}

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	root, ok := val.(map[string]any)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config.Load", Msg: "config is not a JSON object"}
	}

	b := &Board{Name: board}

	gicMap, ok := root["gic"].(map[string]any)
	if !ok {
		return nil, badField("gic")
	}
	if b.GIC.DistBase, ok = addr(gicMap["dist"]); !ok {
		return nil, badField("gic.dist")
	}
	if b.GIC.CPUBase, ok = addr(gicMap["cpu"]); !ok {
		return nil, badField("gic.cpu")
	}

	ports, ok := root["i2c"].([]any)
	if !ok {
		return nil, badField("i2c")
	}
	for _, p := range ports {
		pm, ok := p.(map[string]any)
		if !ok {
			return nil, badField("i2c[]")
		}
		var port I2CPort
		if port.Base, ok = addr(pm["base"]); !ok {
			return nil, badField("i2c[].base")
		}
		if port.Line, ok = u32(pm["line"]); !ok {
			return nil, badField("i2c[].line")
		}
		port.Cfg = i2c.DefaultConfig()
		if v, present := pm["speed"]; present {
			if port.Cfg.BusSpeedHz, ok = u32(v); !ok {
				return nil, badField("i2c[].speed")
			}
		}
		if v, present := pm["own_address"]; present {
			n, ok := u32(v)
			if !ok || n > 0x7F {
				return nil, badField("i2c[].own_address")
			}
			port.Cfg.OwnAddress = uint8(n)
		}
		if v, present := pm["polled"]; present {
			polled, ok := v.(bool)
			if !ok {
				return nil, badField("i2c[].polled")
			}
			port.Cfg.UseInterrupts = !polled
		}
		b.I2C = append(b.I2C, port)
	}

	bleMap, ok := root["ble"].(map[string]any)
	if !ok {
		return nil, badField("ble")
	}
	if b.BLE.Base, ok = addr(bleMap["base"]); !ok {
		return nil, badField("ble.base")
	}
	if b.BLE.Line, ok = u32(bleMap["line"]); !ok {
		return nil, badField("ble.line")
	}
	b.BLE.Cfg = ble.DefaultConfig()
	if v, present := bleMap["name"]; present {
		if b.BLE.Cfg.DeviceName, ok = v.(string); !ok {
			return nil, badField("ble.name")
		}
	}
	if v, present := bleMap["adv_interval_ms"]; present {
		n, ok := u32(v)
		if !ok || n > 0xFFFF {
			return nil, badField("ble.adv_interval_ms")
		}
		b.BLE.Cfg.AdvIntervalMS = uint16(n)
	}
	if v, present := bleMap["tx_power_dbm"]; present {
		n, ok := i64(v)
		if !ok || n < -128 || n > 127 {
			return nil, badField("ble.tx_power_dbm")
		}
		b.BLE.Cfg.TxPowerDBm = int8(n)
	}
	if err := b.BLE.Cfg.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

func badField(name string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "config.Load", Msg: "bad field " + name}
}

// addr parses a register base. Bases are written as "0x"-prefixed strings so
// the configs stay readable; plain JSON numbers are accepted too.
func addr(v any) (uintptr, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return 0, false
		}
		return uintptr(n), true
	}
	n, ok := i64(v)
	if !ok || n < 0 {
		return 0, false
	}
	return uintptr(n), true
}

func u32(v any) (uint32, bool) {
	n, ok := i64(v)
	if !ok || n < 0 || n > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(n), true
}

// i64 accepts the numeric representations a JSON parser may hand back.
func i64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}
