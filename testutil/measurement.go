package testutil

import (
	"context"
	"errors"
	"iter"
	"math"

	"github.com/hupe1980/probego"
	"github.com/hupe1980/probego/metadata"
	"github.com/hupe1980/probego/model"
)

// IVSchema is the record schema produced by SimMeasurement.
func IVSchema() model.Schema {
	return model.Schema{
		{Name: "Voltage", Unit: "V"},
		{Name: "Current", Unit: "A"},
	}
}

// SimMeasurement is a simulated current-voltage sweep. It sources a
// voltage ramp on the first device channel and yields one record per
// point.
type SimMeasurement struct {
	// FailContacts makes the measurement fail for the listed contacts
	// before producing any record.
	FailContacts map[string]error

	// FaultContact triggers a device fault at the given contact.
	FaultContact string

	start  float64
	end    float64
	points int
}

// NewSimMeasurement creates a sweep from start to end volts.
func NewSimMeasurement(start, end float64, points int) *SimMeasurement {
	return &SimMeasurement{start: start, end: end, points: points}
}

// Name implements probego.Measurement.
func (m *SimMeasurement) Name() string { return "iv-sweep" }

// Settings implements probego.Measurement.
func (m *SimMeasurement) Settings() metadata.Settings {
	return metadata.Settings{
		"start_voltage": metadata.Float(m.start),
		"end_voltage":   metadata.Float(m.end),
		"points":        metadata.Int(int64(m.points)),
	}
}

// ArrayType implements probego.Measurement.
func (m *SimMeasurement) ArrayType() string { return "grid" }

// RequiredChannels implements probego.Measurement.
func (m *SimMeasurement) RequiredChannels() [][]probego.Capability {
	return [][]probego.Capability{
		{probego.CapSourceVoltage, probego.CapMeasureCurrent},
	}
}

// Run implements probego.Measurement.
func (m *SimMeasurement) Run(ctx context.Context, device probego.Device, contact string) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		if contact == m.FaultContact {
			yield(model.Record{}, probego.NewDeviceFaultError(device.Name(), errors.New("simulated overheat")))
			return
		}
		if err := m.FailContacts[contact]; err != nil {
			yield(model.Record{}, err)
			return
		}

		ch := device.Channels()[0]

		// Configure the source range before driving the channel, the way
		// a real driver applies its settings on connect.
		rng := math.Max(math.Abs(m.start), math.Abs(m.end))
		if err := ch.Configure(ctx, metadata.Settings{
			"source_range": metadata.Float(rng),
		}); err != nil {
			yield(model.Record{}, err)
			return
		}

		src := ch.(probego.VoltageSource)
		meter := ch.(probego.CurrentMeter)

		step := 0.0
		if m.points > 1 {
			step = (m.end - m.start) / float64(m.points-1)
		}

		for i := 0; i < m.points; i++ {
			if err := ctx.Err(); err != nil {
				yield(model.Record{}, err)
				return
			}

			v := m.start + float64(i)*step
			if err := src.SourceVoltage(ctx, v); err != nil {
				yield(model.Record{}, err)
				return
			}
			c, err := meter.MeasureCurrent(ctx)
			if err != nil {
				yield(model.Record{}, err)
				return
			}

			rec := model.Record{Fields: IVSchema(), Values: []float64{v, c}}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
