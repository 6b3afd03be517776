package hvac

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DiscoveryDevice links the discovery document to a device registry entry by
// hardware address.
type DiscoveryDevice struct {
	Connections  [][2]string `json:"connections"`
	Name         string      `json:"name"`
	Manufacturer string      `json:"manufacturer"`
	Model        string      `json:"model"`
}

// DiscoveryDocument is the retained configuration document a generic
// MQTT-climate consumer reads to build a control surface for the device.
// Field names follow the Home Assistant MQTT climate discovery contract.
type DiscoveryDocument struct {
	Name                string          `json:"name"`
	UniqueID            string          `json:"unique_id"`
	Device              DiscoveryDevice `json:"device"`
	AvailabilityTopic   string          `json:"availability_topic"`
	PayloadAvailable    string          `json:"payload_available"`
	PayloadNotAvailable string          `json:"payload_not_available"`

	TemperatureCommandTopic    string  `json:"temperature_command_topic"`
	TemperatureStateTopic      string  `json:"temperature_state_topic"`
	TemperatureStateTemplate   string  `json:"temperature_state_template"`
	CurrentTemperatureTopic    string  `json:"current_temperature_topic"`
	CurrentTemperatureTemplate string  `json:"current_temperature_template"`
	MinTemp                    float64 `json:"min_temp"`
	MaxTemp                    float64 `json:"max_temp"`
	TempStep                   float64 `json:"temp_step"`
	Precision                  float64 `json:"precision"`

	ModeCommandTopic  string   `json:"mode_command_topic"`
	ModeStateTopic    string   `json:"mode_state_topic"`
	ModeStateTemplate string   `json:"mode_state_template"`
	Modes             []string `json:"modes"`

	FanModeCommandTopic  string   `json:"fan_mode_command_topic"`
	FanModeStateTopic    string   `json:"fan_mode_state_topic"`
	FanModeStateTemplate string   `json:"fan_mode_state_template"`
	FanModes             []string `json:"fan_modes"`

	SwingModeCommandTopic  string   `json:"swing_mode_command_topic"`
	SwingModeStateTopic    string   `json:"swing_mode_state_topic"`
	SwingModeStateTemplate string   `json:"swing_mode_state_template"`
	SwingModes             []string `json:"swing_modes"`
}

const modeStateTemplate = "{% set modes = {'off': 'off', 'auto': 'auto', 'cool': 'cool', 'dry': 'dry', 'heat': 'heat', 'fan_only': 'fan_only'} %}{{ modes[value_json.HAMode] if value_json.HAMode in modes else 'off' }}"

// MACKey normalizes a MAC address into the device key used in discovery
// topics: colons stripped, uppercase.
func MACKey(mac string) string {
	return strings.ToUpper(strings.ReplaceAll(mac, ":", ""))
}

// StartLink begins device linking. Without a known MAC a single STATUS1
// request is issued; with one, the discovery document is published after a
// short settle delay so entity registration can finish first (best effort).
func (d *Device) StartLink() error {
	if err := d.Router.Handle(d.Topics.Status, 1, d.handleStatus); err != nil {
		return err
	}
	d.mu.Lock()
	mac := d.mac
	d.mu.Unlock()
	if mac == "" {
		d.Publish(d.Topics.CmdStatus, 1, false, "1")
		d.Log.Debugw("requested STATUS1", "device", d.ID)
		return nil
	}
	time.AfterFunc(d.SettleDelay, d.PublishDiscovery)
	return nil
}

func (d *Device) handleStatus(_, payload string) {
	messagesReceived.WithLabelValues("status").Inc()
	mac, err := parseStatusMAC(payload)
	if err != nil {
		parseFailures.WithLabelValues("status").Inc()
		d.Log.Debugw("dropping status payload", "device", d.ID, "error", err)
		return
	}
	if mac == "" {
		return
	}
	d.mu.Lock()
	if d.mac != "" {
		// already linked; repeated or differing MACs are not acted on
		d.mu.Unlock()
		return
	}
	d.mac = mac
	d.linkCounted = true
	d.mu.Unlock()
	devicesLinked.Inc()
	d.Log.Infow("device linked", "device", d.ID, "mac", mac)
	d.PublishDiscovery()
	d.notify()
}

// parseStatusMAC pulls the MAC address out of a STATUS1 payload, either from
// StatusNET.Mac or a top-level Mac field. Returns "" when neither is present.
func parseStatusMAC(payload string) (string, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return "", err
	}
	if net, ok := data["StatusNET"].(map[string]interface{}); ok {
		if mac, ok := net["Mac"].(string); ok {
			return mac, nil
		}
	}
	if mac, ok := data["Mac"].(string); ok {
		return mac, nil
	}
	return "", nil
}

// MAC returns the linked MAC address, or "" while unlinked.
func (d *Device) MAC() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mac
}

// SetMAC sets the MAC address out of band and publishes the discovery
// document.
func (d *Device) SetMAC(mac string) {
	d.mu.Lock()
	if d.mac == mac {
		d.mu.Unlock()
		return
	}
	wasLinked := d.mac != ""
	d.mac = mac
	if !wasLinked {
		d.linkCounted = true
	}
	d.mu.Unlock()
	if !wasLinked {
		devicesLinked.Inc()
	}
	d.PublishDiscovery()
	d.notify()
}

// DisplayName returns the current display name.
func (d *Device) DisplayName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// SetName updates the display name. The discovery document is only
// republished automatically once the device is linked.
func (d *Device) SetName(name string) {
	d.mu.Lock()
	if name == "" || d.name == name {
		d.mu.Unlock()
		return
	}
	d.name = name
	linked := d.mac != ""
	d.mu.Unlock()
	d.Log.Infow("device name set", "device", d.ID, "name", name)
	if linked {
		d.PublishDiscovery()
	}
	d.notify()
}

// DiscoveryTopic returns the retained discovery document topic, or "" while
// unlinked.
func (d *Device) DiscoveryTopic() string {
	mac := d.MAC()
	if mac == "" {
		return ""
	}
	return fmt.Sprintf("%s/climate/%s_mielhvac/config", d.HassPrefix, MACKey(mac))
}

// PublishDiscovery emits the retained discovery document binding this device
// to its MAC-derived key.
func (d *Device) PublishDiscovery() {
	d.mu.Lock()
	mac := d.mac
	name := d.name
	d.mu.Unlock()
	if mac == "" {
		d.Log.Warnw("cannot publish discovery without MAC", "device", d.ID)
		return
	}
	key := MACKey(mac)
	doc := DiscoveryDocument{
		Name:     "HVAC",
		UniqueID: fmt.Sprintf("%s_mielhvac_climate", key),
		Device: DiscoveryDevice{
			Connections:  [][2]string{{"mac", key}},
			Name:         name,
			Manufacturer: "Tasmota",
			Model:        DEFAULT_MODEL,
		},
		AvailabilityTopic:   d.Topics.Availability,
		PayloadAvailable:    PAYLOAD_AVAILABLE,
		PayloadNotAvailable: PAYLOAD_NOT_AVAILABLE,

		TemperatureCommandTopic:    d.Topics.CmdTemp,
		TemperatureStateTopic:      d.Topics.Settings,
		TemperatureStateTemplate:   "{{ value_json.Temp }}",
		CurrentTemperatureTopic:    d.Topics.Sensor,
		CurrentTemperatureTemplate: fmt.Sprintf("{{ value_json.%s.Temperature }}", d.Model),
		MinTemp:                    MIN_TEMP,
		MaxTemp:                    MAX_TEMP,
		TempStep:                   TEMP_STEP,
		Precision:                  PRECISION,

		ModeCommandTopic:  d.Topics.CmdMode,
		ModeStateTopic:    d.Topics.Settings,
		ModeStateTemplate: modeStateTemplate,
		Modes:             []string{MODE_OFF, MODE_AUTO, MODE_COOL, MODE_DRY, MODE_HEAT, MODE_FAN_ONLY},

		FanModeCommandTopic:  d.Topics.CmdFan,
		FanModeStateTopic:    d.Topics.Settings,
		FanModeStateTemplate: "{{ value_json.FanSpeed }}",
		FanModes:             FanModes,

		SwingModeCommandTopic:  d.Topics.CmdSwingV,
		SwingModeStateTopic:    d.Topics.Settings,
		SwingModeStateTemplate: "{{ value_json.SwingV }}",
		SwingModes:             SwingVModes,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		d.Log.Errorw("cannot marshal discovery document", "device", d.ID, "error", err)
		return
	}
	d.Publish(d.DiscoveryTopic(), 1, true, string(payload))
	d.Log.Infow("published discovery document", "device", d.ID, "mac", key)
}

// ClearDiscovery removes the retained discovery document by publishing an
// empty retained payload to the same topic. Callers must release
// subscriptions first.
func (d *Device) ClearDiscovery() {
	topic := d.DiscoveryTopic()
	if topic == "" {
		return
	}
	d.Publish(topic, 1, true, "")
}
