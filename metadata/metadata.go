package metadata

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidMetadata is wrapped by all construction failures.
var ErrInvalidMetadata = errors.New("invalid metadata")

// Config carries the fields for constructing a Metadata record.
// It is consumed by New and holds no invariants of its own.
type Config struct {
	// Measurement is the name of the measurement procedure.
	Measurement string
	// MeasurementSettings are the procedure settings.
	MeasurementSettings Settings
	// SampleID identifies the sample under test.
	SampleID string
	// Device is the name of the measurement device.
	Device string
	// Channels are the device channel names, in device order.
	Channels []string
	// ChannelSettings holds one settings mapping per channel.
	ChannelSettings []Settings
	// Interface is the name of the contact interface.
	Interface string
	// SampleShape describes the sample geometry.
	SampleShape Shape
	// ContactIDs are the interface contact identifiers, in interface order.
	ContactIDs []string
	// ContactPositions holds one position per contact.
	ContactPositions []Position
	// ContactShapes holds one geometry descriptor per contact.
	ContactShapes []Shape
	// Annotations are optional free-form descriptive attributes
	// (title, description, creator and the like).
	Annotations map[string]string
}

// Metadata is the immutable record describing one experiment configuration.
// Construct it with New; accessors return copies where mutation would leak.
type Metadata struct {
	measurement         string
	measurementSettings Settings
	sampleID            string
	device              string
	channels            []string
	channelSettings     []Settings
	iface               string
	sampleShape         Shape
	contactIDs          []string
	contactPositions    []Position
	contactShapes       []Shape
	annotations         map[string]string
}

// New validates cfg and builds an immutable Metadata record. Slices and
// maps are deep-copied, so the caller may reuse cfg afterwards.
func New(cfg Config) (*Metadata, error) {
	switch {
	case cfg.Measurement == "":
		return nil, fmt.Errorf("%w: empty measurement name", ErrInvalidMetadata)
	case cfg.SampleID == "":
		return nil, fmt.Errorf("%w: empty sample id", ErrInvalidMetadata)
	case cfg.Device == "":
		return nil, fmt.Errorf("%w: empty device name", ErrInvalidMetadata)
	case cfg.Interface == "":
		return nil, fmt.Errorf("%w: empty interface name", ErrInvalidMetadata)
	case cfg.SampleShape == nil:
		return nil, fmt.Errorf("%w: missing sample shape", ErrInvalidMetadata)
	}

	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidMetadata)
	}
	if len(cfg.Channels) != len(cfg.ChannelSettings) {
		return nil, fmt.Errorf("%w: %d channels but %d channel settings",
			ErrInvalidMetadata, len(cfg.Channels), len(cfg.ChannelSettings))
	}

	if len(cfg.ContactIDs) == 0 {
		return nil, fmt.Errorf("%w: no contacts", ErrInvalidMetadata)
	}
	if len(cfg.ContactIDs) != len(cfg.ContactPositions) || len(cfg.ContactIDs) != len(cfg.ContactShapes) {
		return nil, fmt.Errorf("%w: %d contacts but %d positions and %d shapes",
			ErrInvalidMetadata, len(cfg.ContactIDs), len(cfg.ContactPositions), len(cfg.ContactShapes))
	}
	seen := make(map[string]struct{}, len(cfg.ContactIDs))
	for _, id := range cfg.ContactIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty contact id", ErrInvalidMetadata)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate contact id %q", ErrInvalidMetadata, id)
		}
		seen[id] = struct{}{}
	}
	for i, s := range cfg.ContactShapes {
		if s == nil {
			return nil, fmt.Errorf("%w: missing shape for contact %q", ErrInvalidMetadata, cfg.ContactIDs[i])
		}
	}

	channelSettings := make([]Settings, len(cfg.ChannelSettings))
	for i, s := range cfg.ChannelSettings {
		channelSettings[i] = s.Clone()
	}

	var annotations map[string]string
	if len(cfg.Annotations) > 0 {
		annotations = make(map[string]string, len(cfg.Annotations))
		for k, v := range cfg.Annotations {
			annotations[k] = v
		}
	}

	return &Metadata{
		measurement:         cfg.Measurement,
		measurementSettings: cfg.MeasurementSettings.Clone(),
		sampleID:            cfg.SampleID,
		device:              cfg.Device,
		channels:            append([]string(nil), cfg.Channels...),
		channelSettings:     channelSettings,
		iface:               cfg.Interface,
		sampleShape:         cfg.SampleShape,
		contactIDs:          append([]string(nil), cfg.ContactIDs...),
		contactPositions:    append([]Position(nil), cfg.ContactPositions...),
		contactShapes:       append([]Shape(nil), cfg.ContactShapes...),
		annotations:         annotations,
	}, nil
}

// Measurement returns the measurement procedure name.
func (m *Metadata) Measurement() string { return m.measurement }

// MeasurementSettings returns a copy of the measurement settings.
func (m *Metadata) MeasurementSettings() Settings { return m.measurementSettings.Clone() }

// SampleID returns the sample identifier.
func (m *Metadata) SampleID() string { return m.sampleID }

// Device returns the device name.
func (m *Metadata) Device() string { return m.device }

// Channels returns a copy of the channel names.
func (m *Metadata) Channels() []string { return append([]string(nil), m.channels...) }

// ChannelSettings returns a copy of the per-channel settings.
func (m *Metadata) ChannelSettings() []Settings {
	out := make([]Settings, len(m.channelSettings))
	for i, s := range m.channelSettings {
		out[i] = s.Clone()
	}
	return out
}

// Interface returns the contact interface name.
func (m *Metadata) Interface() string { return m.iface }

// SampleShape returns the sample geometry descriptor.
func (m *Metadata) SampleShape() Shape { return m.sampleShape }

// ContactIDs returns a copy of the contact identifiers, in interface order.
func (m *Metadata) ContactIDs() []string { return append([]string(nil), m.contactIDs...) }

// ContactPositions returns a copy of the per-contact positions.
func (m *Metadata) ContactPositions() []Position {
	return append([]Position(nil), m.contactPositions...)
}

// ContactShapes returns a copy of the per-contact geometry descriptors.
func (m *Metadata) ContactShapes() []Shape { return append([]Shape(nil), m.contactShapes...) }

// Annotations returns a copy of the free-form attributes (may be nil).
func (m *Metadata) Annotations() map[string]string {
	if m.annotations == nil {
		return nil
	}
	out := make(map[string]string, len(m.annotations))
	for k, v := range m.annotations {
		out[k] = v
	}
	return out
}

// doc is the persisted attribute form of a Metadata record.
type doc struct {
	Measurement         string            `json:"measurement"`
	MeasurementSettings Settings          `json:"measurement_settings"`
	SampleID            string            `json:"sample_id"`
	Device              string            `json:"device"`
	Channels            []string          `json:"channels"`
	ChannelSettings     []Settings        `json:"channel_settings"`
	Interface           string            `json:"interface"`
	SampleShape         string            `json:"sample_shape"`
	ContactIDs          []string          `json:"contact_ids"`
	ContactPositions    []Position        `json:"contact_positions"`
	ContactShapes       []string          `json:"contact_shapes"`
	Annotations         map[string]string `json:"annotations,omitempty"`
}

// MarshalJSON implements json.Marshaler. Shapes serialize as their string
// form so the attribute document stays flat and diffable.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	shapes := make([]string, len(m.contactShapes))
	for i, s := range m.contactShapes {
		shapes[i] = s.String()
	}
	return json.Marshal(doc{
		Measurement:         m.measurement,
		MeasurementSettings: m.measurementSettings,
		SampleID:            m.sampleID,
		Device:              m.device,
		Channels:            m.channels,
		ChannelSettings:     m.channelSettings,
		Interface:           m.iface,
		SampleShape:         m.sampleShape.String(),
		ContactIDs:          m.contactIDs,
		ContactPositions:    m.contactPositions,
		ContactShapes:       shapes,
		Annotations:         m.annotations,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded record passes
// through New, so a malformed document is rejected, not half-loaded.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}

	sampleShape, err := ParseShape(d.SampleShape)
	if err != nil {
		return err
	}
	shapes := make([]Shape, len(d.ContactShapes))
	for i, s := range d.ContactShapes {
		if shapes[i], err = ParseShape(s); err != nil {
			return err
		}
	}

	decoded, err := New(Config{
		Measurement:         d.Measurement,
		MeasurementSettings: d.MeasurementSettings,
		SampleID:            d.SampleID,
		Device:              d.Device,
		Channels:            d.Channels,
		ChannelSettings:     d.ChannelSettings,
		Interface:           d.Interface,
		SampleShape:         sampleShape,
		ContactIDs:          d.ContactIDs,
		ContactPositions:    d.ContactPositions,
		ContactShapes:       shapes,
		Annotations:         d.Annotations,
	})
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
