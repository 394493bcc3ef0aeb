// Package provider defines the cloud capability simrun's core depends on.
//
// A [Provider] creates and destroys ephemeral instances together with their
// disks, manages result objects in object storage and lists the catalog of
// images, zones and machine types. [Cloud] is the concrete implementation: it
// runs the provisioning protocol (duplicate check, reference resolution,
// disk first, instance second, rollback on failure) on top of two low level
// backends, [ComputeAPI] and [StorageAPI], each opened lazily on first use.
//
// Failures are reported as typed errors: [InitializeError],
// [NotFoundError], [DuplicateInstanceName] and [InvalidFilter]. They match
// the sentinels of this package with errors.Is.
package provider
