// Package store persists simrun records in an embedded Badger database.
//
// Records are stored as JSON under "<kind>:<id>" keys. Collection gives a
// typed view over one kind.
package store
