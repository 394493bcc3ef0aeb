// Package hcloud implements provider.ComputeAPI on top of the Hetzner Cloud
// API, adding retry logic, timeout management and error classification.
//
// # Mapping
//
// simrun's compute vocabulary maps onto Hetzner resources as follows:
//
//   - Instance: server
//   - Disk: volume, created in the instance's location and attached at server creation
//   - Zone: location
//   - Machine type: server type, offered in a location when it is priced there
//
// # Organization
//
//   - client.go: client construction and options
//   - operations.go: retried creates, idempotent deletes, API call instrumentation
//   - server.go: server lookup, listing, creation and readiness polling
//   - volume.go: volume creation, readiness polling, labeling and deletion
//   - catalog.go: locations, networks, images and server types
//   - filter.go: translation of instance filters into list options
//   - errors.go: error classification for retry logic
//
// # Retries
//
// Creates are retried with exponential backoff unless the API reports invalid
// input. Deletes retry while the resource is busy. Readiness waits poll at
// Timeouts.PollInterval and are bounded by the timeout the caller passes in.
package hcloud
