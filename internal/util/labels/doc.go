// Package labels provides consistent labeling for the cloud resources simrun
// creates.
//
// Every instance and disk carries the managed-by label plus the owning job and
// project, so machines can be listed and orphaned resources found by selector.
// Label keys use the simrun.io domain prefix.
package labels
