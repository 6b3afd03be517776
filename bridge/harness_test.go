package bridge_test

import (
	"errors"
	"strings"
	"sync"
)

// op records one transport interaction, in order, so teardown sequencing can
// be asserted.
type op struct {
	Kind     string // "publish" or "release"
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]func(topic, payload string)
	ops      []op
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		handlers: make(map[string]func(topic, payload string)),
	}
}

func (f *fakeBus) Publish(topic string, qos byte, retained bool, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op{
		Kind:     "publish",
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
			f.ops = append(f.ops, op{Kind: "release", Topic: filter})
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

func (f *fakeBus) publishesTo(topic string) []op {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []op
	for _, o := range f.ops {
		if o.Kind == "publish" && o.Topic == topic {
			out = append(out, o)
		}
	}
	return out
}

func (f *fakeBus) allOps() []op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]op(nil), f.ops...)
}

func (f *fakeBus) clearOps() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
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
