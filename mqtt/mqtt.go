// Package mqtt wraps the paho MQTT client behind the small publish/subscribe
// surface the bridge needs.
package mqtt

import (
	"crypto/tls"
	"errors"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Config struct {
	Server   string
	ClientID string
	Username string
	Password string
	Log      *zap.SugaredLogger
}

// Client is a self-reconnecting MQTT client. ID increments on every
// successful (re)connection so callers can detect that their subscriptions
// are gone and need to be rebuilt.
type Client struct {
	mu     sync.RWMutex
	client MQTT.Client
	id     int
	closed bool
	log    *zap.SugaredLogger
}

var ErrNotConnected = errors.New("MQTT client not connected")

func New(config *Config) *Client {
	log := config.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Client{log: log}

	connOpts := MQTT.NewClientOptions().
		AddBroker(config.Server).
		SetClientID(config.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false)

	if config.Username != "" {
		connOpts.SetUsername(config.Username)
		if config.Password != "" {
			connOpts.SetPassword(config.Password)
		}
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: true, ClientAuth: tls.NoClientCert}
	connOpts.SetTLSConfig(tlsConfig)

	connOpts.OnConnectionLost = func(c MQTT.Client, err error) {
		log.Warnw("MQTT disconnected", "error", err)
	}

	connect := func() {
		log.Infow("Trying to connect to MQTT", "server", config.Server)
		newClient := MQTT.NewClient(connOpts)
		token := newClient.Connect()
		token.Wait()
		if token.Error() != nil {
			return
		}
		m.mu.Lock()
		m.client = newClient
		m.id++
		id := m.id
		m.mu.Unlock()
		log.Infow("Connected to MQTT", "session", id)
	}

	connect()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			m.mu.RLock()
			closed := m.closed
			client := m.client
			m.mu.RUnlock()
			if closed {
				if client != nil {
					client.Disconnect(100)
				}
				return
			}
			if client == nil || !client.IsConnectionOpen() {
				connect()
			}
		}
	}()
	return m
}

// ID returns the current session ID. It changes whenever the connection is
// re-established.
func (m *Client) ID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id
}

func (m *Client) current() MQTT.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Client) Publish(topic string, qos byte, retained bool, payload string) error {
	client := m.current()
	if client == nil {
		return ErrNotConnected
	}
	token := client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

func (m *Client) Subscribe(topic string, qos byte, callback func(topic, payload string)) error {
	client := m.current()
	if client == nil {
		return ErrNotConnected
	}
	token := client.Subscribe(topic, qos, func(c MQTT.Client, msg MQTT.Message) {
		callback(msg.Topic(), string(msg.Payload()))
	})
	token.Wait()
	return token.Error()
}

func (m *Client) Unsubscribe(topics ...string) error {
	client := m.current()
	if client == nil {
		return ErrNotConnected
	}
	token := client.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}

func (m *Client) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
