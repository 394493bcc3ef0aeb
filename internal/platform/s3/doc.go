// Package s3 stores simulation results in an S3-compatible bucket such as
// Hetzner Object Storage.
//
// Client implements provider.StorageAPI: listing, head lookups, uploads,
// recursive deletes and presigned GET/PUT URLs for a single bucket.
package s3
