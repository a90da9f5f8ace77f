// Package registry holds the shared container that pools attach constructed
// and pooled resources to when callers don't name a container of their own.
package registry

import (
	"sync"
	"sync/atomic"
)

// Registry lazily creates one shared container and hands out the same
// handle on every call. It is created once by the application root and
// passed to every pool that needs the default attachment target.
type Registry[C any] struct {
	create func() C

	once      sync.Once
	container C // written once, inside once.Do
	created   atomic.Bool
}

// New returns a registry that will build its container with create on
// first use.
func New[C any](create func() C) *Registry[C] {
	if create == nil {
		panic("registry: create func must be provided")
	}
	return &Registry[C]{create: create}
}

// Container returns the shared container, creating it on first call.
// Concurrent first calls construct it exactly once.
func (r *Registry[C]) Container() C {
	r.once.Do(func() {
		r.container = r.create()
		r.created.Store(true)
	})
	return r.container
}

// Created reports whether the shared container has been built yet.
func (r *Registry[C]) Created() bool {
	return r.created.Load()
}
