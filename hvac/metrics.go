package hvac

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mielhvac_messages_received_total",
		Help: "Inbound MQTT messages by topic kind",
	}, []string{"kind"})

	parseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mielhvac_parse_failures_total",
		Help: "Inbound messages dropped because the payload could not be parsed",
	}, []string{"kind"})

	commandsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mielhvac_commands_published_total",
		Help: "Commands published to devices",
	}, []string{"command"})

	devicesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mielhvac_devices_discovered_total",
		Help: "Devices seen by the auto-discovery listener",
	})

	devicesLinked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mielhvac_devices_linked",
		Help: "Devices linked to a MAC address",
	})
)
