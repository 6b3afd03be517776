package hvac

import "fmt"

// Topics holds every MQTT topic for one device. All of them are fixed
// functions of the device's base topic.
type Topics struct {
	Availability string // tele/B/LWT, "Online" or anything else (offline)
	Sensor       string // tele/B/SENSOR, JSON keyed by model name
	Settings     string // tele/B/HVACSETTINGS, partial settings JSON
	Status       string // stat/B/STATUS1, carries the MAC address

	CmdMode   string // cmnd/B/HVACSetHAMode
	CmdTemp   string // cmnd/B/HVACSetTemp
	CmdSwingV string // cmnd/B/HVACSetSwingV
	CmdSwingH string // cmnd/B/HVACSetSwingH, defined by the firmware but never issued here
	CmdFan    string // cmnd/B/HVACSetFanSpeed
	CmdStatus string // cmnd/B/Status, requests STATUS1
}

// SensorFilter is the wildcard filter the discovery listener subscribes to.
const SensorFilter = "tele/+/SENSOR"

func NewTopics(base string) Topics {
	return Topics{
		Availability: fmt.Sprintf("tele/%s/LWT", base),
		Sensor:       fmt.Sprintf("tele/%s/SENSOR", base),
		Settings:     fmt.Sprintf("tele/%s/HVACSETTINGS", base),
		Status:       fmt.Sprintf("stat/%s/STATUS1", base),
		CmdMode:      fmt.Sprintf("cmnd/%s/HVACSetHAMode", base),
		CmdTemp:      fmt.Sprintf("cmnd/%s/HVACSetTemp", base),
		CmdSwingV:    fmt.Sprintf("cmnd/%s/HVACSetSwingV", base),
		CmdSwingH:    fmt.Sprintf("cmnd/%s/HVACSetSwingH", base),
		CmdFan:       fmt.Sprintf("cmnd/%s/HVACSetFanSpeed", base),
		CmdStatus:    fmt.Sprintf("cmnd/%s/Status", base),
	}
}
