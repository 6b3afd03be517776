package hvac

import (
	"encoding/json"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

var sensorTopicRx = regexp.MustCompile(`^tele/([^/]+)/SENSOR$`)

type ListenerConfig struct {
	// ModelKey is the sensor payload key that identifies a MiElHVAC unit.
	ModelKey string

	Router       Router
	OnDiscovered func(deviceID string)
	Log          *zap.SugaredLogger
}

// Listener watches the wildcard sensor topic and signals creation of a
// device the first time a qualifying payload shows up for a device id.
type Listener struct {
	ListenerConfig

	mu   sync.Mutex
	seen map[string]bool
}

func NewListener(config *ListenerConfig) *Listener {
	if config.ModelKey == "" {
		config.ModelKey = DEFAULT_MODEL
	}
	if config.Log == nil {
		config.Log = zap.NewNop().Sugar()
	}
	return &Listener{
		ListenerConfig: *config,
		seen:           make(map[string]bool),
	}
}

func (l *Listener) Start() error {
	err := l.Router.Handle(SensorFilter, 1, l.handleSensor)
	if err != nil {
		return err
	}
	l.Log.Infow("listening for devices", "filter", SensorFilter)
	return nil
}

func (l *Listener) Stop() error {
	return l.Router.Release(SensorFilter)
}

// Seen reports whether the device id has already been signaled.
func (l *Listener) Seen(deviceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[deviceID]
}

func (l *Listener) handleSensor(topic, payload string) {
	// the subscription is shared by every device; one bad payload or a
	// panicking creation callback must not take it down
	defer func() {
		if r := recover(); r != nil {
			l.Log.Errorw("panic in discovery listener", "topic", topic, "panic", r)
		}
	}()

	m := sensorTopicRx.FindStringSubmatch(topic)
	if m == nil {
		return
	}
	deviceID := m[1]

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return
	}
	fields, ok := data[l.ModelKey].(map[string]interface{})
	if !ok {
		return
	}
	if _, ok := fields["Temperature"]; !ok {
		l.Log.Debugw("model key present but no temperature", "device", deviceID)
		return
	}

	l.mu.Lock()
	if l.seen[deviceID] {
		l.mu.Unlock()
		return
	}
	l.seen[deviceID] = true
	l.mu.Unlock()

	devicesDiscovered.Inc()
	l.Log.Infow("discovered device", "device", deviceID, "temperature", fields["Temperature"])
	if l.OnDiscovered != nil {
		l.OnDiscovered(deviceID)
	}
}
