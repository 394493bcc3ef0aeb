package store

import (
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"
)

// ErrNotFound is returned when no record exists under a key.
var ErrNotFound = errors.New("record not found")

// Options configures Open.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in memory; data is lost on Close.
	InMemory bool
	Logger   logr.Logger
}

// DB is an open Badger database.
type DB struct {
	db *badger.DB
}

// Open opens or creates the database described by opts.
func Open(opts Options) (*DB, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("store path is required")
		}
		bopts = badger.DefaultOptions(filepath.Clean(opts.Path)).
			WithValueLogFileSize(1 << 24)
	}

	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	bopts = bopts.WithLogger(badgerLogger{log: log.WithName("badger")})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &DB{db: db}, nil
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func key(kind, id string) []byte {
	return []byte(kind + ":" + id)
}

// badgerLogger forwards Badger's log output to a logr.Logger. Info and
// debug messages are demoted to verbosity levels 1 and 2.
type badgerLogger struct {
	log logr.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(nil, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.V(1).Info(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.V(2).Info(fmt.Sprintf(format, args...))
}
