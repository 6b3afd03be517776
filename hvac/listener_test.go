package hvac_test

import (
	"testing"

	"github.com/aldweb/ha-MiElHVAC-tasmota/hvac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListener(bus *fakeBus, onDiscovered func(string)) *hvac.Listener {
	return hvac.NewListener(&hvac.ListenerConfig{
		Router:       bus,
		OnDiscovered: onDiscovered,
	})
}

func TestListenerDiscoversOnce(t *testing.T) {
	bus := newFakeBus()
	var discovered []string
	l := newTestListener(bus, func(id string) { discovered = append(discovered, id) })
	require.NoError(t, l.Start())

	bus.deliver("tele/bedroom/SENSOR", `{"MiElHVAC":{"Temperature":21.0}}`)
	bus.deliver("tele/bedroom/SENSOR", `{"MiElHVAC":{"Temperature":21.5}}`)

	assert.Equal(t, []string{"bedroom"}, discovered)
	assert.True(t, l.Seen("bedroom"))
}

func TestListenerDiscoversMultipleDevices(t *testing.T) {
	bus := newFakeBus()
	var discovered []string
	l := newTestListener(bus, func(id string) { discovered = append(discovered, id) })
	require.NoError(t, l.Start())

	bus.deliver("tele/bedroom/SENSOR", `{"MiElHVAC":{"Temperature":21.0}}`)
	bus.deliver("tele/office/SENSOR", `{"MiElHVAC":{"Temperature":19.0}}`)

	assert.Equal(t, []string{"bedroom", "office"}, discovered)
}

func TestListenerIgnoresNonQualifyingPayloads(t *testing.T) {
	bus := newFakeBus()
	var discovered []string
	l := newTestListener(bus, func(id string) { discovered = append(discovered, id) })
	require.NoError(t, l.Start())

	// not JSON
	bus.deliver("tele/bedroom/SENSOR", "garbage")
	// no model key
	bus.deliver("tele/bedroom/SENSOR", `{"DS18B20":{"Temperature":21.0}}`)
	// model key without a temperature
	bus.deliver("tele/bedroom/SENSOR", `{"MiElHVAC":{"Power":"on"}}`)
	// model key is not an object
	bus.deliver("tele/bedroom/SENSOR", `{"MiElHVAC":42}`)

	assert.Empty(t, discovered)
	assert.False(t, l.Seen("bedroom"))
}

func TestListenerCustomModelKey(t *testing.T) {
	bus := newFakeBus()
	var discovered []string
	l := hvac.NewListener(&hvac.ListenerConfig{
		ModelKey:     "CustomHVAC",
		Router:       bus,
		OnDiscovered: func(id string) { discovered = append(discovered, id) },
	})
	require.NoError(t, l.Start())

	bus.deliver("tele/attic/SENSOR", `{"MiElHVAC":{"Temperature":21.0}}`)
	bus.deliver("tele/attic/SENSOR", `{"CustomHVAC":{"Temperature":21.0}}`)

	assert.Equal(t, []string{"attic"}, discovered)
}

func TestListenerSurvivesPanickingCallback(t *testing.T) {
	bus := newFakeBus()
	var discovered []string
	l := newTestListener(bus, func(id string) {
		if id == "broken" {
			panic("boom")
		}
		discovered = append(discovered, id)
	})
	require.NoError(t, l.Start())

	assert.NotPanics(t, func() {
		bus.deliver("tele/broken/SENSOR", `{"MiElHVAC":{"Temperature":21.0}}`)
	})
	bus.deliver("tele/bedroom/SENSOR", `{"MiElHVAC":{"Temperature":21.0}}`)

	assert.Equal(t, []string{"bedroom"}, discovered)
}

func TestListenerStopReleasesFilter(t *testing.T) {
	bus := newFakeBus()
	l := newTestListener(bus, nil)
	require.NoError(t, l.Start())
	assert.True(t, bus.handled(hvac.SensorFilter))

	require.NoError(t, l.Stop())
	assert.False(t, bus.handled(hvac.SensorFilter))
}
