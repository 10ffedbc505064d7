package store

import (
	"time"

	"github.com/google/uuid"
)

// Option is a function that modifies store configuration
type Option func(*options)

type options struct {
	fs          FileSystem
	lockFactory FileLockFactory
	timeFunc    func() time.Time
	idFunc      func() string
}

func newOptions(opts []Option) *options {
	o := &options{
		timeFunc: time.Now,
		idFunc:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = &OSFileSystem{}
	}
	if o.lockFactory == nil {
		o.lockFactory = &FlockFactory{}
	}
	return o
}

// WithFileSystem sets a custom FileSystem implementation (JSON backend)
func WithFileSystem(fs FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation (JSON backend)
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(o *options) {
		o.lockFactory = factory
	}
}

// WithTimeFunc sets a custom time function for testing
func WithTimeFunc(fn func() time.Time) Option {
	return func(o *options) {
		o.timeFunc = fn
	}
}

// WithIDFunc sets the generator used for new record ids
func WithIDFunc(fn func() string) Option {
	return func(o *options) {
		o.idFunc = fn
	}
}
