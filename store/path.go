package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/probego/metadata"
)

// TimestampLayout is the fixed-width UTC timestamp embedded in dataset
// paths. Fixed-width nanoseconds keep lexicographic order equal to
// chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

const timestampLen = len(TimestampLayout)

// samplePrefix is the reserved namespace for sample registry links.
// Measurements cannot use it as a name.
const samplePrefix = "samples"

// DatasetPath is a parsed dataset address of the form
// /<measurement>/<fingerprint>/<timestamp>-<sampleID>.
type DatasetPath struct {
	Measurement string
	Fingerprint metadata.Fingerprint
	Timestamp   time.Time
	SampleID    string
}

// String renders the canonical slash-form of the path.
func (p DatasetPath) String() string {
	return "/" + p.Measurement + "/" + p.Fingerprint.String() + "/" +
		p.Timestamp.UTC().Format(TimestampLayout) + "-" + p.SampleID
}

// key returns the blob key prefix for this dataset (no leading slash).
func (p DatasetPath) key() string {
	return strings.TrimPrefix(p.String(), "/")
}

// ParseDatasetPath parses a canonical dataset path.
func ParseDatasetPath(s string) (DatasetPath, error) {
	trimmed := strings.TrimPrefix(s, "/")
	parts := strings.SplitN(trimmed, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return DatasetPath{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}

	fp, err := metadata.ParseFingerprint(parts[1])
	if err != nil {
		return DatasetPath{}, fmt.Errorf("%w: %q: %v", ErrInvalidPath, s, err)
	}

	entry := parts[2]
	if len(entry) < timestampLen+2 || entry[timestampLen] != '-' {
		return DatasetPath{}, fmt.Errorf("%w: malformed entry in %q", ErrInvalidPath, s)
	}

	ts, err := time.Parse(TimestampLayout, entry[:timestampLen])
	if err != nil {
		return DatasetPath{}, fmt.Errorf("%w: %q: %v", ErrInvalidPath, s, err)
	}

	return DatasetPath{
		Measurement: parts[0],
		Fingerprint: fp,
		Timestamp:   ts,
		SampleID:    entry[timestampLen+1:],
	}, nil
}

// validateName rejects names that would break path addressing.
func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidPath, kind)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %s %q contains reserved characters", ErrInvalidPath, kind, name)
	}
	return nil
}
