// Package bridge wires hvac devices to an MQTT transport, in two variants:
// a static bridge built from a fixed device list and an auto-discovery
// bridge that creates devices as they show up on the wire.
package bridge

import (
	"fmt"

	"github.com/aldweb/ha-MiElHVAC-tasmota/hvac"
	"go.uber.org/zap"
)

// DeviceConfig describes one statically configured device.
type DeviceConfig struct {
	ID    string `yaml:"id"`
	Topic string `yaml:"topic"` // base topic, defaults to ID
	Model string `yaml:"model"`
	Name  string `yaml:"name"`
}

type Config struct {
	Devices     []DeviceConfig
	TopicPrefix string
	Publish     hvac.Publish
	Router      hvac.Router
	Log         *zap.SugaredLogger
}

// Bridge is the static-config variant: every device is known at setup time,
// commands are not applied optimistically and no discovery document is
// published.
type Bridge struct {
	Config
	devices map[string]*hvac.Device
}

func New(config *Config) *Bridge {
	if config.Log == nil {
		config.Log = zap.NewNop().Sugar()
	}
	return &Bridge{
		Config:  *config,
		devices: make(map[string]*hvac.Device),
	}
}

func (b *Bridge) Start() error {
	for _, dc := range b.Devices {
		if _, ok := b.devices[dc.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, dc.ID)
		}
		d := hvac.NewDevice(&hvac.Config{
			ID:        dc.ID,
			BaseTopic: dc.Topic,
			Model:     dc.Model,
			Name:      dc.Name,
			Publish:   b.Publish,
			Router:    b.Router,
			Log:       b.Log,
			OnChange:  b.publishState,
		})
		if err := d.Start(); err != nil {
			return err
		}
		if err := handleCommands(b.Router, b.TopicPrefix, d); err != nil {
			return err
		}
		b.devices[dc.ID] = d
		b.Log.Infow("device configured", "device", dc.ID, "topic", d.BaseTopic)
		b.publishState(d)
	}
	return nil
}

func (b *Bridge) Stop() error {
	var firstErr error
	for id, d := range b.devices {
		if err := releaseCommands(b.Router, b.TopicPrefix, id); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := d.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.devices = make(map[string]*hvac.Device)
	return firstErr
}

// Device returns the device with the given id, or nil.
func (b *Bridge) Device(id string) *hvac.Device {
	return b.devices[id]
}

func (b *Bridge) publishState(d *hvac.Device) {
	publishState(b.Publish, b.TopicPrefix, d)
}
