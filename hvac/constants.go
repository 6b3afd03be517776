package hvac

import "github.com/aldweb/ha-MiElHVAC-tasmota/bimap"

// Semantic operating modes, as presented to consumers.
const MODE_OFF = "off"
const MODE_AUTO = "auto"
const MODE_COOL = "cool"
const MODE_DRY = "dry"
const MODE_HEAT = "heat"
const MODE_FAN_ONLY = "fan_only"

// Operating actions, a read-only projection of the last-seen mode code.
const ACTION_OFF = "off"
const ACTION_IDLE = "idle"
const ACTION_COOLING = "cooling"
const ACTION_DRYING = "drying"
const ACTION_HEATING = "heating"
const ACTION_FAN = "fan"

// Modes maps each semantic mode to the HAMode code the MiElHVAC firmware
// speaks on the wire. The two vocabularies happen to coincide today; the
// table keeps them decoupled. A semantic mode absent from the table has no
// wire representation and cannot be commanded.
var Modes = bimap.New(map[string]string{
	MODE_OFF:      "off",
	MODE_AUTO:     "auto",
	MODE_COOL:     "cool",
	MODE_DRY:      "dry",
	MODE_HEAT:     "heat",
	MODE_FAN_ONLY: "fan_only",
})

var actions = map[string]string{
	"off":      ACTION_OFF,
	"auto":     ACTION_IDLE,
	"cool":     ACTION_COOLING,
	"dry":      ACTION_DRYING,
	"heat":     ACTION_HEATING,
	"fan_only": ACTION_FAN,
}

// ModeFromWire translates a wire mode code into the semantic mode and its
// action projection. An unrecognized code maps to off/off.
func ModeFromWire(code string) (mode string, action string) {
	m, ok := Modes.GetInverse(code)
	if !ok {
		return MODE_OFF, ACTION_OFF
	}
	return m, actions[code]
}

// WireFromMode translates a semantic mode into its wire code.
func WireFromMode(mode string) (code string, ok bool) {
	return Modes.Get(mode)
}

var FanModes = []string{"auto", "quiet", "low", "medium", "high"}

var SwingVModes = []string{"auto", "up", "middle_up", "middle", "middle_down", "down", "swing"}

// Horizontal swing is reported by the firmware but not commanded; the values
// only ever show up as a read-only attribute.
var SwingHModes = []string{"auto", "left", "middle_left", "middle", "middle_right", "right", "wide", "swing"}

const MIN_TEMP = 16.0
const MAX_TEMP = 31.0
const TEMP_STEP = 1.0
const PRECISION = 0.5

const DEFAULT_MODEL = "MiElHVAC"

const PAYLOAD_AVAILABLE = "Online"
const PAYLOAD_NOT_AVAILABLE = "Offline"

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
