// Package blobstore provides storage abstraction for immutable dataset blobs.
//
// Store is the interface for reading and writing blobs (metadata documents,
// data blocks, link entries). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap reads and atomic writes
//   - MemoryStore: in-memory, for tests and short-lived datasets
//   - s3.Store: Amazon S3 with range reads
//   - minio.Store: MinIO and other S3-compatible object storage
//
// # Custom Implementations
//
// Implement the Store interface to support custom backends:
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
