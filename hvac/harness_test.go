package hvac_test

import (
	"errors"
	"strings"
	"sync"

	"github.com/aldweb/ha-MiElHVAC-tasmota/hvac"
)

type message struct {
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

// fakeBus plays transport and router at once: it records every publish and
// routes delivered messages to the registered handlers.
type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]func(topic, payload string)
	messages []message
	released []string
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		handlers: make(map[string]func(topic, payload string)),
	}
}

func (f *fakeBus) Publish(topic string, qos byte, retained bool, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
}

func (f *fakeBus) Handle(filter string, qos byte, handler func(topic, payload string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.handlers[filter]; ok {
		return errors.New("filter already handled")
	}
	f.handlers[filter] = handler
	return nil
}

func (f *fakeBus) Release(filters ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, filter := range filters {
		if _, ok := f.handlers[filter]; ok {
			delete(f.handlers, filter)
			f.released = append(f.released, filter)
		}
	}
	return nil
}

func (f *fakeBus) deliver(topic, payload string) {
	f.mu.Lock()
	var matched []func(topic, payload string)
	for filter, handler := range f.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, handler)
		}
	}
	f.mu.Unlock()
	for _, handler := range matched {
		handler(topic, payload)
	}
}

func (f *fakeBus) handled(filter string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[filter]
	return ok
}

func (f *fakeBus) messagesTo(topic string) []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []message
	for _, m := range f.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBus) allMessages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.messages...)
}

func (f *fakeBus) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
}

func topicMatches(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	if len(fp) != len(tp) {
		return false
	}
	for i := range fp {
		if fp[i] != "+" && fp[i] != tp[i] {
			return false
		}
	}
	return true
}

func newTestDevice(bus *fakeBus, optimistic bool, onChange func(d *hvac.Device)) *hvac.Device {
	return hvac.NewDevice(&hvac.Config{
		ID:         "hvac1",
		Optimistic: optimistic,
		Publish:    bus.Publish,
		Router:     bus,
		OnChange:   onChange,
	})
}
