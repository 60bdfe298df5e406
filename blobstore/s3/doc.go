// Package s3 provides a blobstore.Store backed by Amazon S3.
//
// Reads use ranged GETs so only the requested block bytes travel over the
// network. Construct the client with the aws-sdk-go-v2 config loader:
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "datasets/")
package s3
