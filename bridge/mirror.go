package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aldweb/ha-MiElHVAC-tasmota/hvac"
)

var ErrDuplicateDevice = errors.New("duplicate device id")

// StateTopic is where a device's state mirror document lives under the
// bridge's own topic prefix.
func StateTopic(prefix, id string) string {
	return fmt.Sprintf("%s/%s/state", prefix, id)
}

func setTopic(prefix, id, field string) string {
	return fmt.Sprintf("%s/%s/%s/set", prefix, id, field)
}

// publishState mirrors the device state as a retained JSON document.
// Republishing an unchanged state is harmless.
func publishState(publish hvac.Publish, prefix string, d *hvac.Device) {
	snapshot := d.Snapshot()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	publish(StateTopic(prefix, d.ID), 0, true, string(payload))
}

// handleCommands exposes the device command handlers on the bridge's own
// set-topics. Invalid values are dropped inside the device; a target
// temperature that does not parse is dropped here.
func handleCommands(r hvac.Router, prefix string, d *hvac.Device) error {
	commands := []struct {
		field   string
		handler func(topic, payload string)
	}{
		{"mode", func(_, payload string) { d.SetMode(payload) }},
		{"temp", func(_, payload string) {
			temp, err := strconv.ParseFloat(payload, 64)
			if err != nil {
				d.Log.Debugw("dropping temperature command", "device", d.ID, "payload", payload)
				return
			}
			d.SetTargetTemperature(temp)
		}},
		{"fan", func(_, payload string) { d.SetFanMode(payload) }},
		{"swing", func(_, payload string) { d.SetSwingMode(payload) }},
	}
	for _, c := range commands {
		if err := r.Handle(setTopic(prefix, d.ID, c.field), 0, c.handler); err != nil {
			return err
		}
	}
	return nil
}

func releaseCommands(r hvac.Router, prefix, id string) error {
	return r.Release(
		setTopic(prefix, id, "mode"),
		setTopic(prefix, id, "temp"),
		setTopic(prefix, id, "fan"),
		setTopic(prefix, id, "swing"),
	)
}
