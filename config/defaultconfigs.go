package config

// Embedded board configurations. Key: board ID. Val: raw JSON for that
// board. Populate at build time via code generation or by hand during
// bring-up.

const cfgVirtA7 = `{
  "gic": {
    "dist": "0x08000000",
    "cpu":  "0x08010000"
  },
  "i2c": [
    {"base": "0x40005400", "line": 23, "speed": 400000},
    {"base": "0x40005800", "line": 24, "speed": 100000, "polled": true}
  ],
  "ble": {
    "base": "0x40020000",
    "line": 48,
    "name": "periph-node",
    "adv_interval_ms": 100,
    "tx_power_dbm": 0
  }
}`

var embeddedConfigs = map[string][]byte{
	"virt-a7": []byte(cfgVirtA7),
}
