package main

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/aldweb/ha-MiElHVAC-tasmota/bridge"
	"github.com/aldweb/ha-MiElHVAC-tasmota/hvac"
	"github.com/aldweb/ha-MiElHVAC-tasmota/mqtt"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MqttClient  *mqtt.Client
	TopicPrefix string
	HassPrefix  string
	ModelKey    string
	MetricsAddr string
	Discovery   bool
	Devices     []bridge.DeviceConfig
	Log         *zap.SugaredLogger
}

type devicesFile struct {
	Devices []bridge.DeviceConfig `yaml:"devices"`
}

func loadStaticDevices(log *zap.SugaredLogger, path, single, singleName string) []bridge.DeviceConfig {
	var devices []bridge.DeviceConfig
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Fatalw("cannot read devices file", "path", path, "error", err)
		}
		var f devicesFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			log.Fatalw("cannot parse devices file", "path", path, "error", err)
		}
		devices = f.Devices
	}
	if single != "" {
		devices = append(devices, bridge.DeviceConfig{ID: single, Name: singleName})
	}
	seen := make(map[string]bool)
	for _, d := range devices {
		if d.ID == "" {
			log.Fatalw("device without an id in configuration")
		}
		if seen[d.ID] {
			log.Fatalw("duplicate device id in configuration", "device", d.ID)
		}
		seen[d.ID] = true
	}
	return devices
}

func ParseCommandLine() *Config {
	// .env is optional; it typically carries MQTT_USERNAME / MQTT_PASSWORD
	_ = godotenv.Load()

	hostname, _ := os.Hostname()

	server := flag.String("server", "tcp://127.0.0.1:1883", "The full url of the MQTT server to connect to ex: tcp://127.0.0.1:1883")
	clientid := flag.String("clientid", hostname+strconv.Itoa(time.Now().Second()), "A clientid for the connection")
	username := flag.String("username", os.Getenv("MQTT_USERNAME"), "A username to authenticate to the MQTT server")
	password := flag.String("password", os.Getenv("MQTT_PASSWORD"), "Password to match username")
	prefix := flag.String("prefix", "mielhvac2mqtt", "MQTT topic root where the bridge mirrors state and accepts commands")
	hassPrefix := flag.String("hassPrefix", "homeassistant", "Home assistant discovery prefix")
	modelKey := flag.String("model", hvac.DEFAULT_MODEL, "Sensor payload key that identifies the HVAC module")
	discovery := flag.Bool("discovery", true, "Auto-discover devices on the wildcard sensor topic")
	devicesPath := flag.String("devices", "", "YAML file listing statically configured devices")
	device := flag.String("device", "", "Base topic of a single statically configured device")
	deviceName := flag.String("deviceName", "", "Display name for -device")
	metricsAddr := flag.String("metricsAddr", ":9090", "Prometheus metrics listen address, empty to disable")
	debug := flag.Bool("debug", false, "Verbose logging")

	flag.Parse()

	var logger *zap.Logger
	var err error
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	log := logger.Sugar()

	devices := loadStaticDevices(log, *devicesPath, *device, *deviceName)
	for i := range devices {
		if devices[i].Model == "" {
			devices[i].Model = *modelKey
		}
	}

	mqttClient := mqtt.New(&mqtt.Config{
		Server:   *server,
		ClientID: *clientid,
		Username: *username,
		Password: *password,
		Log:      log,
	})

	return &Config{
		MqttClient:  mqttClient,
		TopicPrefix: *prefix,
		HassPrefix:  *hassPrefix,
		ModelKey:    *modelKey,
		MetricsAddr: *metricsAddr,
		Discovery:   *discovery,
		Devices:     devices,
		Log:         log,
	}
}
