package scene

import (
	"github.com/superfly/spawnpool/pool"
	"github.com/superfly/spawnpool/registry"
)

// Pool is a pool of nodes hosted by a World.
type Pool = pool.Pool[*Node, Prefab, Placement, *Node]

// NewRegistry returns a registry whose shared container is a group named
// name, created in w on first use.
func NewRegistry(w *World, name string) *registry.Registry[*Node] {
	return registry.New(func() *Node { return w.NewGroup(name) })
}

// NewPool returns a pool that builds, destroys and hosts nodes in w.
func NewPool(name string, w *World, shared *registry.Registry[*Node], opts ...pool.Opt) (*Pool, error) {
	return pool.New[*Node, Prefab, Placement, *Node](name, w, w, shared, opts...)
}
