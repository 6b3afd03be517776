// Package router keeps a registry of MQTT topic subscriptions so they can be
// torn down symmetrically with the components that registered them.
package router

import (
	"errors"
	"sync"
)

type Subscribe func(topic string, qos byte, callback func(topic, payload string)) error
type Unsubscribe func(topics ...string) error

// Config contains the configuration parameters for a new Router instance
type Config struct {
	Subscribe   Subscribe
	Unsubscribe Unsubscribe
}

// Router maps topic filters to handler functions. Every Handle call
// subscribes on the transport and records the filter; Release undoes both.
type Router struct {
	Config
	lock     sync.RWMutex
	handlers map[string]func(topic, payload string)
}

var ErrAlreadyHandled = errors.New("topic filter already has a handler")

// New returns a new Router instance
func New(config *Config) *Router {
	return &Router{
		Config:   *config,
		handlers: make(map[string]func(topic, payload string)),
	}
}

// Handle subscribes to the topic filter and routes matching messages to the
// handler. The handler is invoked outside the registry lock.
func (r *Router) Handle(filter string, qos byte, handler func(topic, payload string)) error {
	r.lock.Lock()
	if _, ok := r.handlers[filter]; ok {
		r.lock.Unlock()
		return ErrAlreadyHandled
	}
	r.handlers[filter] = handler
	r.lock.Unlock()

	err := r.Subscribe(filter, qos, func(topic, payload string) {
		r.dispatch(filter, topic, payload)
	})
	if err != nil {
		r.lock.Lock()
		delete(r.handlers, filter)
		r.lock.Unlock()
		return err
	}
	return nil
}

func (r *Router) dispatch(filter, topic, payload string) {
	r.lock.RLock()
	handler := r.handlers[filter]
	r.lock.RUnlock()
	if handler != nil {
		handler(topic, payload)
	}
}

// Release unsubscribes the given topic filters and drops their handlers.
func (r *Router) Release(filters ...string) error {
	r.lock.Lock()
	var owned []string
	for _, f := range filters {
		if _, ok := r.handlers[f]; ok {
			delete(r.handlers, f)
			owned = append(owned, f)
		}
	}
	r.lock.Unlock()
	if len(owned) == 0 {
		return nil
	}
	return r.Unsubscribe(owned...)
}

// ReleaseAll tears down every registered subscription.
func (r *Router) ReleaseAll() error {
	r.lock.Lock()
	filters := make([]string, 0, len(r.handlers))
	for f := range r.handlers {
		filters = append(filters, f)
	}
	r.handlers = make(map[string]func(topic, payload string))
	r.lock.Unlock()
	if len(filters) == 0 {
		return nil
	}
	return r.Unsubscribe(filters...)
}

// Size returns the number of registered topic filters.
func (r *Router) Size() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.handlers)
}
