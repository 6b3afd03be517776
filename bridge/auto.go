package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/aldweb/ha-MiElHVAC-tasmota/hvac"
	"go.uber.org/zap"
)

type AutoConfig struct {
	TopicPrefix string
	HassPrefix  string
	ModelKey    string
	SettleDelay time.Duration
	Publish     hvac.Publish
	Router      hvac.Router
	Log         *zap.SugaredLogger
}

// AutoBridge is the auto-discovery variant: a wildcard listener creates an
// optimistic device per discovered id, links it to its MAC address and
// publishes a retained discovery document for generic MQTT-climate
// consumers.
type AutoBridge struct {
	AutoConfig
	listener *hvac.Listener

	mu      sync.Mutex
	devices map[string]*hvac.Device
}

func NewAuto(config *AutoConfig) *AutoBridge {
	if config.Log == nil {
		config.Log = zap.NewNop().Sugar()
	}
	a := &AutoBridge{
		AutoConfig: *config,
		devices:    make(map[string]*hvac.Device),
	}
	a.listener = hvac.NewListener(&hvac.ListenerConfig{
		ModelKey:     config.ModelKey,
		Router:       config.Router,
		OnDiscovered: a.addDevice,
		Log:          config.Log,
	})
	return a
}

func (a *AutoBridge) Start() error {
	return a.listener.Start()
}

// Stop tears the bridge down: subscriptions are released first, then each
// device's retained discovery document is cleared with an empty retained
// publish.
func (a *AutoBridge) Stop() error {
	firstErr := a.listener.Stop()
	a.mu.Lock()
	devices := a.devices
	a.devices = make(map[string]*hvac.Device)
	a.mu.Unlock()
	for id, d := range devices {
		if err := releaseCommands(a.Router, a.TopicPrefix, id); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := a.Router.Release(StateTopic(a.TopicPrefix, id)); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := d.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.ClearDiscovery()
	}
	return firstErr
}

// Device returns the device with the given id, or nil.
func (a *AutoBridge) Device(id string) *hvac.Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.devices[id]
}

func (a *AutoBridge) addDevice(id string) {
	a.mu.Lock()
	if _, ok := a.devices[id]; ok {
		a.mu.Unlock()
		return
	}
	d := hvac.NewDevice(&hvac.Config{
		ID:          id,
		Model:       a.ModelKey,
		Optimistic:  true,
		HassPrefix:  a.HassPrefix,
		SettleDelay: a.SettleDelay,
		Publish:     a.Publish,
		Router:      a.Router,
		Log:         a.Log,
		OnChange:    a.publishState,
	})
	a.devices[id] = d
	a.mu.Unlock()

	a.restore(d)
	if err := d.Start(); err != nil {
		a.Log.Errorw("cannot start device", "device", id, "error", err)
		return
	}
	if err := d.StartLink(); err != nil {
		a.Log.Errorw("cannot start device linking", "device", id, "error", err)
	}
	if err := handleCommands(a.Router, a.TopicPrefix, d); err != nil {
		a.Log.Errorw("cannot register command topics", "device", id, "error", err)
	}
	a.publishState(d)
}

// restore seeds the device from its retained state mirror, if one survives
// from an earlier run. Best effort: live telemetry always wins.
func (a *AutoBridge) restore(d *hvac.Device) {
	topic := StateTopic(a.TopicPrefix, d.ID)
	var once sync.Once
	err := a.Router.Handle(topic, 1, func(_, payload string) {
		once.Do(func() {
			var s hvac.State
			if err := json.Unmarshal([]byte(payload), &s); err == nil {
				d.Restore(s)
				a.Log.Debugw("restored state", "device", d.ID)
			}
			// release from another goroutine: unsubscribing inside the
			// message handler can deadlock the transport
			go func() {
				if err := a.Router.Release(topic); err != nil {
					a.Log.Debugw("cannot release restore subscription", "device", d.ID, "error", err)
				}
			}()
		})
	})
	if err != nil {
		a.Log.Debugw("cannot subscribe for state restore", "device", d.ID, "error", err)
	}
}

func (a *AutoBridge) publishState(d *hvac.Device) {
	publishState(a.Publish, a.TopicPrefix, d)
}
