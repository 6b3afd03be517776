package hvac

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// State is the climate state of one device. Temperature fields are pointers
// because they are unknown until the device first reports them. The struct
// doubles as the retained state-mirror document.
type State struct {
	Available          bool     `json:"available"`
	CurrentTemperature *float64 `json:"current_temperature,omitempty"`
	AverageTemperature *float64 `json:"average_temperature,omitempty"`
	TargetTemperature  *float64 `json:"target_temperature,omitempty"`
	Mode               string   `json:"mode"`
	Action             string   `json:"action"`
	FanMode            string   `json:"fan_mode"`
	SwingMode          string   `json:"swing_mode"`
	SwingHMode         string   `json:"swing_horizontal"`
}

func newState() State {
	return State{
		Mode:       MODE_OFF,
		Action:     ACTION_OFF,
		FanMode:    "auto",
		SwingMode:  "auto",
		SwingHMode: "auto",
	}
}

// settingsUpdate carries the subset of fields present in one HVACSETTINGS
// message. Absent fields stay nil and must not touch existing state.
type settingsUpdate struct {
	targetTemp *float64
	mode       *string
	action     *string
	fanMode    *string
	swingV     *string
	swingH     *string
}

func (u *settingsUpdate) empty() bool {
	return u.targetTemp == nil && u.mode == nil && u.fanMode == nil &&
		u.swingV == nil && u.swingH == nil
}

// parseSettings decodes a tele/B/HVACSETTINGS payload. A non-coercible Temp
// value poisons the whole message: nothing is applied.
func parseSettings(payload string) (*settingsUpdate, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, err
	}
	u := &settingsUpdate{}
	if raw, ok := data["Temp"]; ok {
		t, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		u.targetTemp = &t
	}
	if raw, ok := data["HAMode"]; ok {
		// anything that is not a known wire code resets to off/off
		code, _ := raw.(string)
		mode, action := ModeFromWire(code)
		u.mode = &mode
		u.action = &action
	}
	if s, ok := data["FanSpeed"].(string); ok {
		u.fanMode = &s
	}
	if s, ok := data["SwingV"].(string); ok {
		u.swingV = &s
	}
	if s, ok := data["SwingH"].(string); ok {
		u.swingH = &s
	}
	return u, nil
}

// parseSensorTemperature extracts the measured temperature from a
// tele/B/SENSOR payload, which is keyed by the model name. Returns nil with
// no error when the payload simply does not carry a temperature.
func parseSensorTemperature(payload, model string) (*float64, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, err
	}
	raw, ok := data[model]
	if !ok {
		return nil, nil
	}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("sensor key %q is not an object", model)
	}
	value, ok := fields["Temperature"]
	if !ok {
		return nil, nil
	}
	t, err := toFloat(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, errors.New("value is not a number")
	}
}
