package metadata

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Measurement:         "iv-sweep",
		MeasurementSettings: Settings{"start_voltage": Float(-1), "end_voltage": Float(1), "points": Int(11)},
		SampleID:            "sample-42",
		Device:              "smu-2400",
		Channels:            []string{"smu-a"},
		ChannelSettings:     []Settings{{"compliance": Float(0.1)}},
		Interface:           "grid-2x2",
		SampleShape:         NewRectangle(20, 20, "mm"),
		ContactIDs:          []string{"0", "1", "2", "3"},
		ContactPositions:    []Position{{0, 0}, {10, 0}, {0, 10}, {10, 10}},
		ContactShapes:       []Shape{Point{}, Point{}, Point{}, Point{}},
		Annotations:         map[string]string{"creator": "lab"},
	}
}

func TestNewValid(t *testing.T) {
	m, err := New(validConfig())
	require.NoError(t, err)

	assert.Equal(t, "iv-sweep", m.Measurement())
	assert.Equal(t, "sample-42", m.SampleID())
	assert.Equal(t, []string{"0", "1", "2", "3"}, m.ContactIDs())
	assert.Equal(t, "lab", m.Annotations()["creator"])
}

func TestNewInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyMeasurement", func(c *Config) { c.Measurement = "" }},
		{"EmptySampleID", func(c *Config) { c.SampleID = "" }},
		{"EmptyDevice", func(c *Config) { c.Device = "" }},
		{"EmptyInterface", func(c *Config) { c.Interface = "" }},
		{"MissingSampleShape", func(c *Config) { c.SampleShape = nil }},
		{"NoChannels", func(c *Config) { c.Channels = nil; c.ChannelSettings = nil }},
		{"ChannelSettingsMismatch", func(c *Config) { c.ChannelSettings = c.ChannelSettings[:0] }},
		{"ContactPositionsMismatch", func(c *Config) { c.ContactPositions = c.ContactPositions[:2] }},
		{"ContactShapesMismatch", func(c *Config) { c.ContactShapes = c.ContactShapes[:1] }},
		{"DuplicateContact", func(c *Config) { c.ContactIDs = []string{"0", "0", "1", "2"} }},
		{"NilContactShape", func(c *Config) { c.ContactShapes[1] = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidMetadata)
		})
	}
}

func TestImmutability(t *testing.T) {
	cfg := validConfig()
	m, err := New(cfg)
	require.NoError(t, err)

	// Mutating the source config must not affect the record.
	cfg.ContactIDs[0] = "mutated"
	cfg.MeasurementSettings["points"] = Int(999)
	assert.Equal(t, "0", m.ContactIDs()[0])
	assert.Equal(t, Int(11), m.MeasurementSettings()["points"])

	// Mutating accessor results must not affect the record either.
	ids := m.ContactIDs()
	ids[0] = "mutated"
	assert.Equal(t, "0", m.ContactIDs()[0])

	settings := m.MeasurementSettings()
	settings["points"] = Int(999)
	assert.Equal(t, Int(11), m.MeasurementSettings()["points"])
}

func TestJSONRoundTrip(t *testing.T) {
	m, err := New(validConfig())
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back Metadata
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, m.Measurement(), back.Measurement())
	assert.True(t, m.MeasurementSettings().Equal(back.MeasurementSettings()))
	assert.Equal(t, m.ContactPositions(), back.ContactPositions())
	assert.Equal(t, m.SampleShape().String(), back.SampleShape().String())
	assert.Equal(t, m.Fingerprint(), back.Fingerprint())
}

func TestSettingsContains(t *testing.T) {
	stored := Settings{"a": Float(1), "b": Int(2), "c": Tuple(1, 2, 3)}

	assert.True(t, stored.Contains(Settings{}))
	assert.True(t, stored.Contains(Settings{"a": Float(1)}))
	assert.True(t, stored.Contains(Settings{"a": Float(1), "c": Tuple(1, 2, 3)}))
	assert.False(t, stored.Contains(Settings{"a": Float(2)}))
	assert.False(t, stored.Contains(Settings{"a": Int(1)})) // no numeric coercion
	assert.False(t, stored.Contains(Settings{"missing": Float(1)}))
	assert.False(t, stored.Contains(Settings{"c": Tuple(1, 2)}))
}
