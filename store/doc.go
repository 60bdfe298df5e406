// Package store implements the addressable storage engine for measurement
// datasets.
//
// Every dataset is addressed by a path derived from its metadata:
//
//	/<measurement>/<fingerprint>/<timestamp>-<sampleID>
//
// The fingerprint condenses the full device, measurement and interface
// configuration into three hash segments, so datasets recorded under
// identical conditions share an address prefix and remain comparable. The
// timestamp entry keeps repeated runs distinct.
//
// Data is written as immutable append blocks per contact, compressed with
// ZSTD by default. The engine is backend-agnostic: any blobstore.Store
// (local filesystem, in-memory, S3, MinIO) can hold a dataset tree.
//
// Filters locate datasets by sample id (via the sample registry) or by
// measurement settings subsets, the latter accelerated by an in-memory
// inverted index when enabled.
package store
