// Package scene is a small in-memory node tree that can host pooled
// resources. It implements the pool's Factory and Host interfaces and is
// used by the spawner simulation and by tests.
package scene

import (
	"fmt"
	"sync"

	"github.com/superfly/spawnpool/pool"
)

// Vec3 is a position in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Placement is where a node goes when it is spawned.
type Placement struct {
	Position Vec3
	Heading  float64 // degrees
}

// Prefab describes the node to build on a pool miss.
type Prefab struct {
	Kind string
}

// Node is an element of the scene tree. Its fields are guarded by the
// owning World.
type Node struct {
	id   int
	name string
	kind string

	parent    *Node
	children  []*Node
	placement Placement
	active    bool
	destroyed bool

	relMu   sync.Mutex
	release pool.ReleaseFunc[*Node]
	wirings int
}

var _ pool.Poolable[*Node] = (*Node)(nil)

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.name, n.id)
}

// ID returns the node's unique id within its world.
func (n *Node) ID() int {
	return n.id
}

// Name returns the node's name.
func (n *Node) Name() string {
	return n.name
}

// Kind returns the prefab kind the node was built from, or "" for groups.
func (n *Node) Kind() string {
	return n.kind
}

// SetReleaseFunc wires the func the node calls to release itself.
func (n *Node) SetReleaseFunc(fn pool.ReleaseFunc[*Node]) {
	n.relMu.Lock()
	defer n.relMu.Unlock()
	n.release = fn
	n.wirings += 1
}

// Wirings returns how many times a release func has been set on the node.
func (n *Node) Wirings() int {
	n.relMu.Lock()
	defer n.relMu.Unlock()
	return n.wirings
}

// Release hands the node back to the pool that built it, keeping at most
// capacity nodes pooled. It reports false if no pool is wired.
// It must not be called from inside a pool operation.
func (n *Node) Release(capacity int) bool {
	n.relMu.Lock()
	fn := n.release
	n.relMu.Unlock()

	if fn == nil {
		return false
	}
	fn(n, capacity)
	return true
}
