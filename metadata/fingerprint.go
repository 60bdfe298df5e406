package metadata

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// SegmentCount is the fixed number of fingerprint segments.
const SegmentCount = 3

// Segment indices. The subset-to-segment mapping is a fixed convention:
// changing a field of one subset changes only the segment at its index.
const (
	// SegmentMeasurement covers the measurement name and its settings.
	SegmentMeasurement = iota
	// SegmentChannels covers the device name, channel names and
	// per-channel settings.
	SegmentChannels
	// SegmentInterface covers the interface name, the sample shape and
	// the contact ids, positions and shapes.
	SegmentInterface
)

// SegmentSize is the byte length of one segment (16 hex characters).
const SegmentSize = 8

// Segment is one fingerprint component: a truncated SHA-256 over the
// canonical encoding of one metadata subset.
type Segment [SegmentSize]byte

// String returns the segment as lowercase hex.
func (s Segment) String() string { return hex.EncodeToString(s[:]) }

// Fingerprint is the ordered tuple of segments deriving a dataset address.
// Identical subsets always yield identical segments at the same position,
// independent of the other subsets' values.
type Fingerprint [SegmentCount]Segment

// String returns the storage form: colon-joined lowercase hex segments.
func (f Fingerprint) String() string {
	parts := make([]string, SegmentCount)
	for i, s := range f {
		parts[i] = s.String()
	}
	return strings.Join(parts, ":")
}

// ParseFingerprint parses the colon-joined storage form.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	parts := strings.Split(s, ":")
	if len(parts) != SegmentCount {
		return f, fmt.Errorf("metadata: fingerprint %q has %d segments, want %d", s, len(parts), SegmentCount)
	}
	for i, p := range parts {
		raw, err := hex.DecodeString(p)
		if err != nil || len(raw) != SegmentSize {
			return f, fmt.Errorf("metadata: malformed fingerprint segment %q", p)
		}
		copy(f[i][:], raw)
	}
	return f, nil
}

// Fingerprint computes the fingerprint of the record. The hash input is a
// canonical binary encoding (sorted keys, fixed-width numbers), so the
// result does not depend on construction order or process state.
func (m *Metadata) Fingerprint() Fingerprint {
	var f Fingerprint
	f[SegmentMeasurement] = hashSegment(m.appendMeasurementSubset(nil))
	f[SegmentChannels] = hashSegment(m.appendChannelSubset(nil))
	f[SegmentInterface] = hashSegment(m.appendInterfaceSubset(nil))
	return f
}

func hashSegment(canonical []byte) Segment {
	var s Segment
	sum := sha256.Sum256(canonical)
	copy(s[:], sum[:SegmentSize])
	return s
}

func appendString(dst []byte, s string) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

func (m *Metadata) appendMeasurementSubset(dst []byte) []byte {
	dst = appendString(dst, m.measurement)
	return m.measurementSettings.appendCanonical(dst)
}

func (m *Metadata) appendChannelSubset(dst []byte) []byte {
	dst = appendString(dst, m.device)
	for i, name := range m.channels {
		dst = appendString(dst, name)
		dst = m.channelSettings[i].appendCanonical(dst)
	}
	return dst
}

func (m *Metadata) appendInterfaceSubset(dst []byte) []byte {
	dst = appendString(dst, m.iface)
	dst = appendString(dst, m.sampleShape.String())
	for i, id := range m.contactIDs {
		dst = appendString(dst, id)
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(m.contactPositions[i].X))
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(m.contactPositions[i].Y))
		dst = appendString(dst, m.contactShapes[i].String())
	}
	return dst
}
