// Package async fans work out over goroutines.
//
// [Each] runs one call per item and joins every failure, so a cleanup that
// cannot remove one resource still removes the rest.
package async
