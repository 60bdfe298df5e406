// Package metadata provides the immutable experiment configuration record
// and its deterministic fingerprint.
//
// A Metadata value captures everything that defines one experiment run:
// the measurement procedure and its settings, the device and its channel
// configuration, and the contact interface geometry. The storage engine
// derives the dataset address from it, so the record is validated at
// construction and never mutated afterwards.
//
// Fingerprints are computed per semantic subset of the record (measurement,
// device/channels, interface/geometry) with a cryptographic hash, so they
// are stable across processes and independent between subsets.
package metadata
