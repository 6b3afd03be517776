package hvac

import (
	"math"
	"strconv"
	"sync"
	"time"

	average "github.com/RobinUS2/golang-moving-average"
	"go.uber.org/zap"
)

type Publish func(topic string, qos byte, retained bool, payload string)

// Router registers topic handlers and releases them symmetrically on
// teardown.
type Router interface {
	Handle(filter string, qos byte, handler func(topic, payload string)) error
	Release(filters ...string) error
}

// Telemetry arrives every few minutes, so a dozen samples cover roughly the
// last hour.
const smoothingWindow = 12

const defaultHassPrefix = "homeassistant"
const defaultSettleDelay = 2 * time.Second

type Config struct {
	ID        string
	BaseTopic string // defaults to ID
	Model     string // sensor payload key, defaults to MiElHVAC
	Name      string // display name, defaults to ID
	MAC       string // optional; when known up front the discovery document publishes after a settle delay

	// Optimistic applies command values locally before the device echoes
	// them back (auto-discovery variant). The static variant waits for the
	// HVACSETTINGS echo.
	Optimistic bool

	HassPrefix  string
	SettleDelay time.Duration

	Publish  Publish
	Router   Router
	Log      *zap.SugaredLogger
	OnChange func(d *Device)
}

// Device is a driver for one Tasmota MiElHVAC unit. All state mutation
// happens through inbound MQTT handlers and the Set* commands.
type Device struct {
	Config
	Topics Topics

	mu          sync.Mutex
	state       State
	live        bool // true once any telemetry has been applied
	avg         *average.MovingAverage
	mac         string
	name        string
	linkCounted bool // this device holds a +1 in the linked-devices gauge
}

func NewDevice(config *Config) *Device {
	if config.BaseTopic == "" {
		config.BaseTopic = config.ID
	}
	if config.Model == "" {
		config.Model = DEFAULT_MODEL
	}
	if config.Name == "" {
		config.Name = config.ID
	}
	if config.HassPrefix == "" {
		config.HassPrefix = defaultHassPrefix
	}
	if config.SettleDelay == 0 {
		config.SettleDelay = defaultSettleDelay
	}
	if config.Log == nil {
		config.Log = zap.NewNop().Sugar()
	}
	return &Device{
		Config: *config,
		Topics: NewTopics(config.BaseTopic),
		state:  newState(),
		avg:    average.New(smoothingWindow),
		mac:    config.MAC,
		name:   config.Name,
	}
}

// Start registers the telemetry handlers.
func (d *Device) Start() error {
	handlers := []struct {
		filter  string
		handler func(topic, payload string)
	}{
		{d.Topics.Availability, d.handleAvailability},
		{d.Topics.Sensor, d.handleSensor},
		{d.Topics.Settings, d.handleSettings},
	}
	for _, h := range handlers {
		if err := d.Router.Handle(h.filter, 1, h.handler); err != nil {
			d.Stop()
			return err
		}
	}
	return nil
}

// Stop releases every subscription the device holds, including the status
// subscription when device linking was started, and gives back this device's
// contribution to the linked-devices gauge.
func (d *Device) Stop() error {
	d.mu.Lock()
	counted := d.linkCounted
	d.linkCounted = false
	d.mu.Unlock()
	if counted {
		devicesLinked.Dec()
	}
	return d.Router.Release(
		d.Topics.Availability,
		d.Topics.Sensor,
		d.Topics.Settings,
		d.Topics.Status,
	)
}

// Snapshot returns a copy of the current state.
func (d *Device) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Restore re-applies a previously persisted state snapshot. It is a no-op
// once live telemetry has been received.
func (d *Device) Restore(s State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.live {
		return
	}
	if Modes.Exists(s.Mode) {
		d.state.Mode = s.Mode
	}
	if s.TargetTemperature != nil {
		d.state.TargetTemperature = s.TargetTemperature
	}
	if s.FanMode != "" {
		d.state.FanMode = s.FanMode
	}
	if s.SwingMode != "" {
		d.state.SwingMode = s.SwingMode
	}
	if s.SwingHMode != "" {
		d.state.SwingHMode = s.SwingHMode
	}
}

func (d *Device) handleAvailability(_, payload string) {
	messagesReceived.WithLabelValues("availability").Inc()
	d.mu.Lock()
	d.live = true
	d.state.Available = payload == PAYLOAD_AVAILABLE
	d.mu.Unlock()
	d.notify()
}

func (d *Device) handleSensor(_, payload string) {
	messagesReceived.WithLabelValues("sensor").Inc()
	temp, err := parseSensorTemperature(payload, d.Model)
	if err != nil {
		parseFailures.WithLabelValues("sensor").Inc()
		d.Log.Debugw("dropping sensor payload", "device", d.ID, "error", err)
		return
	}
	if temp == nil {
		return
	}
	d.mu.Lock()
	d.live = true
	d.state.CurrentTemperature = temp
	d.avg.Add(*temp)
	avg := math.Round(d.avg.Avg()*10) / 10
	d.state.AverageTemperature = &avg
	d.mu.Unlock()
	d.notify()
}

func (d *Device) handleSettings(_, payload string) {
	messagesReceived.WithLabelValues("settings").Inc()
	u, err := parseSettings(payload)
	if err != nil {
		parseFailures.WithLabelValues("settings").Inc()
		d.Log.Debugw("dropping settings payload", "device", d.ID, "error", err)
		return
	}
	if u.empty() {
		return
	}
	d.mu.Lock()
	d.live = true
	if u.targetTemp != nil {
		d.state.TargetTemperature = u.targetTemp
	}
	if u.mode != nil {
		d.state.Mode = *u.mode
		d.state.Action = *u.action
	}
	if u.fanMode != nil {
		d.state.FanMode = *u.fanMode
	}
	if u.swingV != nil {
		d.state.SwingMode = *u.swingV
	}
	if u.swingH != nil {
		d.state.SwingHMode = *u.swingH
	}
	d.mu.Unlock()
	d.notify()
}

// SetMode commands a new operating mode. A semantic mode without a wire code
// is a silent no-op.
func (d *Device) SetMode(mode string) {
	code, ok := WireFromMode(mode)
	if !ok {
		return
	}
	d.Publish(d.Topics.CmdMode, 1, false, code)
	commandsPublished.WithLabelValues("mode").Inc()
	if d.Optimistic {
		d.mu.Lock()
		d.state.Mode = mode
		d.mu.Unlock()
		d.notify()
	}
}

// SetTargetTemperature commands a new target temperature. The firmware takes
// whole degrees; the fractional part is truncated, not rounded.
func (d *Device) SetTargetTemperature(temp float64) {
	d.Publish(d.Topics.CmdTemp, 1, false, strconv.Itoa(int(temp)))
	commandsPublished.WithLabelValues("temperature").Inc()
	if d.Optimistic {
		d.mu.Lock()
		d.state.TargetTemperature = &temp
		d.mu.Unlock()
		d.notify()
	}
}

// SetFanMode commands a new fan speed. Values outside FanModes are silently
// ignored.
func (d *Device) SetFanMode(fanMode string) {
	if !contains(FanModes, fanMode) {
		return
	}
	d.Publish(d.Topics.CmdFan, 1, false, fanMode)
	commandsPublished.WithLabelValues("fan").Inc()
	if d.Optimistic {
		d.mu.Lock()
		d.state.FanMode = fanMode
		d.mu.Unlock()
		d.notify()
	}
}

// SetSwingMode commands a new vertical swing position. Horizontal swing is
// reported only and has no command path.
func (d *Device) SetSwingMode(swingMode string) {
	if !contains(SwingVModes, swingMode) {
		return
	}
	d.Publish(d.Topics.CmdSwingV, 1, false, swingMode)
	commandsPublished.WithLabelValues("swing").Inc()
	if d.Optimistic {
		d.mu.Lock()
		d.state.SwingMode = swingMode
		d.mu.Unlock()
		d.notify()
	}
}

func (d *Device) notify() {
	if d.OnChange != nil {
		d.OnChange(d)
	}
}
