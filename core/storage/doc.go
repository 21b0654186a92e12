// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client for the few operations this service needs:
// reading source snapshots, uploading run reports and pruning old reports.
// Both AWS S3 and self-hosted MinIO instances are supported.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (see core/storage/mocks).
//
// # Helpers
//
//   - EnsureBucket: Creates the bucket if needed.
//   - PutJSON / GetJSON: Upload and download JSON documents.
//   - Prune: Keeps only the newest objects under a prefix.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.PutJSON(ctx, client, cfg.Storage.Bucket, "reports/os1/run.json", report)
package storage
