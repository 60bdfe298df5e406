package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetPathRoundTrip(t *testing.T) {
	md := testMetadata(t, nil)

	p := DatasetPath{
		Measurement: "iv-sweep",
		Fingerprint: md.Fingerprint(),
		Timestamp:   time.Date(2024, 5, 17, 9, 30, 0, 123456789, time.UTC),
		SampleID:    "sample-42",
	}

	s := p.String()
	assert.Contains(t, s, "/iv-sweep/")
	assert.Contains(t, s, "2024-05-17T09:30:00.123456789Z-sample-42")

	got, err := ParseDatasetPath(s)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDatasetPathOrder(t *testing.T) {
	md := testMetadata(t, nil)
	fp := md.Fingerprint()

	base := time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	earlier := DatasetPath{Measurement: "m", Fingerprint: fp, Timestamp: base, SampleID: "s"}
	later := DatasetPath{Measurement: "m", Fingerprint: fp, Timestamp: base.Add(time.Nanosecond), SampleID: "s"}

	// Fixed-width timestamps keep lexicographic and chronological order aligned.
	assert.Less(t, earlier.String(), later.String())
}

func TestParseDatasetPathInvalid(t *testing.T) {
	md := testMetadata(t, nil)
	fp := md.Fingerprint().String()

	tests := []struct {
		name string
		path string
	}{
		{"Empty", ""},
		{"NoEntry", "/iv-sweep/" + fp},
		{"BadFingerprint", "/iv-sweep/zz/2024-05-17T09:30:00.123456789Z-s"},
		{"NoSampleSeparator", "/iv-sweep/" + fp + "/2024-05-17T09:30:00.123456789Z"},
		{"BadTimestamp", "/iv-sweep/" + fp + "/2024-13-17T09:30:00.123456789Z-s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDatasetPath(tt.path)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestNextTimestampStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return fixed }))

	prev := s.nextTimestamp()
	for range 100 {
		next := s.nextTimestamp()
		assert.True(t, next.After(prev))
		prev = next
	}
}
