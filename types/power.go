package types

// ------------------------
// Power monitor (ina226)
// ------------------------

// MonitorInfo is the static descriptor for one monitored channel.
// Retained value: power/dev/<index>/info
type MonitorInfo struct {
	Addr          uint16 `json:"addr"`
	Shunt_uOhm    uint32 `json:"shunt_uohm"`
	MaxBusAmps    uint32 `json:"max_bus_amps"`
	Calibration   uint16 `json:"calibration"`
	CurrentLSB_nA uint32 `json:"current_lsb_nA"`
	PowerLSB_nW   uint32 `json:"power_lsb_nW"`
	Driver        string `json:"driver"`
	SchemaVersion int    `json:"schema_version"`
}

// PowerValue is one converted sample from one channel.
// Retained value: power/dev/<index>/value
type PowerValue struct {
	Bus_mV     int32 `json:"bus_mV"`
	Shunt_uV   int32 `json:"shunt_uV"`
	Current_uA int32 `json:"current_uA"`
	Power_uW   int32 `json:"power_uW"`
	TsMs       int64 `json:"ts_ms"`
}

// StatusEvent reports a failed operation on a channel; a failed read is
// published as a status event, never as a zero-valued PowerValue.
type StatusEvent struct {
	Index int    `json:"index"`
	Err   string `json:"err"`
	TsMs  int64  `json:"ts_ms"`
}

// Control is a partial command published on power/ctrl. Index nil means
// "all registered devices". Exactly the fields a verb needs are set.
type Control struct {
	Verb  string  `json:"verb"` // set_mode | set_averaging | set_bus_time | set_shunt_time | set_alert | reset
	Index *int    `json:"index,omitempty"`
	Mode  *uint8  `json:"mode,omitempty"`
	Count *uint16 `json:"count,omitempty"` // averaging sample count
	Us    *uint16 `json:"us,omitempty"`    // conversion time in µs
	On    *bool   `json:"on,omitempty"`    // alert enable
}
