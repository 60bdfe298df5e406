package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/probego"
	"github.com/hupe1980/probego/metadata"
)

// SimChannel is a simulated source-measure channel. The sample behaves as
// an ohmic resistor, so measured current is sourced voltage over
// Resistance.
type SimChannel struct {
	// FailConfigure makes Configure return an error.
	FailConfigure bool

	// Resistance is the simulated load in ohms.
	Resistance float64

	name string

	mu       sync.Mutex
	settings metadata.Settings
	voltage  float64
}

// NewSimChannel creates a channel with a 1 MOhm simulated load.
func NewSimChannel(name string) *SimChannel {
	return &SimChannel{
		name:       name,
		Resistance: 1e6,
		settings:   metadata.Settings{"compliance": metadata.Float(0.1)},
	}
}

// Name implements probego.Channel.
func (c *SimChannel) Name() string { return c.name }

// Settings implements probego.Channel.
func (c *SimChannel) Settings() metadata.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Clone()
}

// Configure implements probego.Channel.
func (c *SimChannel) Configure(_ context.Context, settings metadata.Settings) error {
	if c.FailConfigure {
		return errors.New("simulated configure failure")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range settings {
		c.settings[k] = v
	}
	return nil
}

// SourceVoltage implements probego.VoltageSource.
func (c *SimChannel) SourceVoltage(_ context.Context, volts float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voltage = volts
	return nil
}

// MeasureCurrent implements probego.CurrentMeter.
func (c *SimChannel) MeasureCurrent(_ context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voltage / c.Resistance, nil
}

// SweepVoltage implements probego.VoltageSweeper.
func (c *SimChannel) SweepVoltage(ctx context.Context, start, end float64, points int) ([]float64, []float64, error) {
	if points < 2 {
		return nil, nil, errors.New("sweep needs at least 2 points")
	}

	voltages := make([]float64, points)
	currents := make([]float64, points)
	step := (end - start) / float64(points-1)
	for i := range voltages {
		v := start + float64(i)*step
		if err := c.SourceVoltage(ctx, v); err != nil {
			return nil, nil, err
		}
		cur, err := c.MeasureCurrent(ctx)
		if err != nil {
			return nil, nil, err
		}
		voltages[i] = v
		currents[i] = cur
	}
	return voltages, currents, nil
}

// SimDevice is a simulated single-channel source-measure unit.
type SimDevice struct {
	name     string
	channels []*SimChannel
}

// NewSimDevice creates a device with one SimChannel named "smu-a".
func NewSimDevice() *SimDevice {
	return &SimDevice{
		name:     "sim-smu",
		channels: []*SimChannel{NewSimChannel("smu-a")},
	}
}

// Name implements probego.Device.
func (d *SimDevice) Name() string { return d.name }

// Channels implements probego.Device.
func (d *SimDevice) Channels() []probego.Channel {
	out := make([]probego.Channel, len(d.channels))
	for i, c := range d.channels {
		out[i] = c
	}
	return out
}

// Channel returns the simulated channel at index i for test adjustments.
func (d *SimDevice) Channel(i int) *SimChannel { return d.channels[i] }
