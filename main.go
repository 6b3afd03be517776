package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aldweb/ha-MiElHVAC-tasmota/bridge"
	"github.com/aldweb/ha-MiElHVAC-tasmota/hvac"
	"github.com/aldweb/ha-MiElHVAC-tasmota/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// supervise rebuilds the bridges whenever the MQTT session changes: a fresh
// session has no subscriptions. It blocks until stop closes and returns the
// bridges current at that point, so the caller owns them for teardown and no
// rebuild can race the shutdown.
func supervise(session func() int, interval time.Duration, rebuild func() (*bridge.Bridge, *bridge.AutoBridge, error), stop <-chan struct{}) (*bridge.Bridge, *bridge.AutoBridge) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var static *bridge.Bridge
	var auto *bridge.AutoBridge
	var sessionID int
	for {
		select {
		case <-stop:
			return static, auto
		case <-ticker.C:
			newSessionID := session()
			if newSessionID == sessionID || newSessionID == 0 {
				continue
			}
			s, a, err := rebuild()
			if err != nil {
				// sessionID stays put so the next tick retries
				continue
			}
			static, auto = s, a
			sessionID = newSessionID
		}
	}
}

func main() {

	ctrlC := make(chan os.Signal, 1)
	signal.Notify(ctrlC, os.Interrupt, syscall.SIGTERM)

	config := ParseCommandLine()
	log := config.Log

	if config.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(config.MetricsAddr, mux); err != nil {
				log.Errorw("metrics server stopped", "error", err)
			}
		}()
	}

	publish := hvac.Publish(func(topic string, qos byte, retained bool, payload string) {
		if err := config.MqttClient.Publish(topic, qos, retained, payload); err != nil {
			log.Warnw("publish failed", "topic", topic, "error", err)
		}
	})

	rebuild := func() (*bridge.Bridge, *bridge.AutoBridge, error) {
		r := router.New(&router.Config{
			Subscribe:   config.MqttClient.Subscribe,
			Unsubscribe: config.MqttClient.Unsubscribe,
		})
		static := bridge.New(&bridge.Config{
			Devices:     config.Devices,
			TopicPrefix: config.TopicPrefix,
			Publish:     publish,
			Router:      r,
			Log:         log,
		})
		if err := static.Start(); err != nil {
			log.Errorw("error starting bridge", "error", err)
			return nil, nil, err
		}
		var auto *bridge.AutoBridge
		if config.Discovery {
			auto = bridge.NewAuto(&bridge.AutoConfig{
				TopicPrefix: config.TopicPrefix,
				HassPrefix:  config.HassPrefix,
				ModelKey:    config.ModelKey,
				Publish:     publish,
				Router:      r,
				Log:         log,
			})
			if err := auto.Start(); err != nil {
				log.Errorw("error starting discovery", "error", err)
				return nil, nil, err
			}
		}
		return static, auto, nil
	}

	stop := make(chan struct{})
	go func() {
		<-ctrlC
		close(stop)
	}()

	static, auto := supervise(config.MqttClient.ID, 2*time.Second, rebuild, stop)

	if auto != nil {
		if err := auto.Stop(); err != nil {
			log.Warnw("error stopping discovery", "error", err)
		}
	}
	if static != nil {
		if err := static.Stop(); err != nil {
			log.Warnw("error stopping bridge", "error", err)
		}
	}
	config.MqttClient.Close()
}
