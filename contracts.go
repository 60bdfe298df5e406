package probego

import (
	"context"
	"iter"

	"github.com/hupe1980/probego/metadata"
	"github.com/hupe1980/probego/model"
)

// Capability identifies an electrical capability a device channel may offer.
type Capability uint8

const (
	// CapSourceVoltage is the ability to source a fixed voltage.
	CapSourceVoltage Capability = iota + 1
	// CapSweepVoltage is the ability to run a hardware-timed voltage sweep.
	CapSweepVoltage
	// CapMeasureCurrent is the ability to measure current.
	CapMeasureCurrent
)

func (c Capability) String() string {
	switch c {
	case CapSourceVoltage:
		return "source-voltage"
	case CapSweepVoltage:
		return "sweep-voltage"
	case CapMeasureCurrent:
		return "measure-current"
	default:
		return "unknown"
	}
}

// Channel is one electrical channel of a measurement device.
type Channel interface {
	// Name identifies the channel within its device.
	Name() string

	// Settings returns the channel's current configuration.
	Settings() metadata.Settings

	// Configure applies settings to the channel hardware.
	Configure(ctx context.Context, settings metadata.Settings) error
}

// VoltageSource is implemented by channels that can source a fixed voltage.
type VoltageSource interface {
	SourceVoltage(ctx context.Context, volts float64) error
}

// VoltageSweeper is implemented by channels that can run a hardware-timed
// voltage sweep, returning the sourced voltages and measured currents.
type VoltageSweeper interface {
	SweepVoltage(ctx context.Context, start, end float64, points int) (voltages, currents []float64, err error)
}

// CurrentMeter is implemented by channels that can measure current.
type CurrentMeter interface {
	MeasureCurrent(ctx context.Context) (float64, error)
}

// HasCapability reports whether a channel offers the given capability.
// Capabilities are structural: a channel advertises one by implementing
// the matching interface.
func HasCapability(ch Channel, c Capability) bool {
	switch c {
	case CapSourceVoltage:
		_, ok := ch.(VoltageSource)
		return ok
	case CapSweepVoltage:
		_, ok := ch.(VoltageSweeper)
		return ok
	case CapMeasureCurrent:
		_, ok := ch.(CurrentMeter)
		return ok
	default:
		return false
	}
}

// Device is a measurement instrument exposing one or more channels.
type Device interface {
	// Name identifies the device model.
	Name() string

	// Channels returns the device channels in a stable order.
	Channels() []Channel
}

// ContactArray is the sample interface: a fixed grid of electrical
// contacts, exactly one of which is active at a time.
type ContactArray interface {
	// Name identifies the interface hardware.
	Name() string

	// ArrayType is the spatial layout class the interface provides
	// (e.g. "grid"). Measurements may require a specific type.
	ArrayType() string

	// SampleShape describes the sample geometry.
	SampleShape() metadata.Shape

	// ContactIDs returns all contact identifiers in interface order.
	ContactIDs() []string

	// Position returns the spatial position of a contact.
	Position(id string) (metadata.Position, bool)

	// Shape returns the geometry descriptor of a contact.
	Shape(id string) (metadata.Shape, bool)

	// SelectContact routes the device to the given contact.
	SelectContact(ctx context.Context, id string) error
}

// Measurement is a procedure that produces a finite stream of records for
// one contact.
type Measurement interface {
	// Name identifies the procedure (forms the dataset namespace).
	Name() string

	// Settings returns the procedure settings recorded in metadata.
	Settings() metadata.Settings

	// ArrayType is the interface array type this procedure assumes.
	// Empty means any.
	ArrayType() string

	// RequiredChannels lists the capabilities required of each device
	// channel, by channel index.
	RequiredChannels() [][]Capability

	// Run executes the procedure against the currently selected contact.
	// The returned iterator is lazy, finite and must not be restarted.
	Run(ctx context.Context, device Device, contact string) iter.Seq2[model.Record, error]
}
