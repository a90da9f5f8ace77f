package scene

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/superfly/spawnpool/pool"
)

var ErrUnknownPrefab = errors.New("scene: prefab has no kind")

// World owns a tree of nodes rooted at Root.
type World struct {
	log *zap.Logger

	mu        sync.Mutex
	root      *Node
	nextID    int
	live      int
	built     int
	destroyed int
}

var _ pool.Factory[*Node, Prefab, Placement] = (*World)(nil)
var _ pool.Host[*Node, Placement, *Node] = (*World)(nil)

type Opt func(*World)

// Logger sets the logger used for world events.
func Logger(log *zap.Logger) Opt {
	return func(w *World) { w.log = log }
}

// NewWorld returns an empty world with an active root node.
func NewWorld(opts ...Opt) *World {
	w := &World{log: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	w.root = w.newNode("Root", "")
	w.root.active = true
	return w
}

func (w *World) newNode(name, kind string) *Node {
	w.nextID += 1
	w.live += 1
	return &Node{
		id:   w.nextID,
		name: name,
		kind: kind,
	}
}

// Root returns the root node.
func (w *World) Root() *Node {
	return w.root
}

// NewGroup creates an active, empty node under the root, for use as a
// container.
func (w *World) NewGroup(name string) *Node {
	w.mu.Lock()
	defer w.mu.Unlock()

	g := w.newNode(name, "")
	g.active = true
	w.setParent(g, w.root)
	w.log.Debug("scene: group", zap.Stringer("node", g))
	return g
}

// Construct builds an active node from prefab at pl, under the root.
func (w *World) Construct(prefab Prefab, pl Placement) (*Node, error) {
	if prefab.Kind == "" {
		return nil, ErrUnknownPrefab
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.built += 1
	n := w.newNode(fmt.Sprintf("%s-%d", prefab.Kind, w.built), prefab.Kind)
	n.active = true
	n.placement = pl
	w.setParent(n, w.root)
	w.log.Debug("scene: construct", zap.Stringer("node", n))
	return n, nil
}

// Destroy detaches n and its subtree from the world. Destroying a node
// twice is a no-op.
func (w *World) Destroy(n *Node) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n.destroyed {
		return
	}
	w.setParent(n, nil)
	w.destroyTree(n)
	w.log.Debug("scene: destroy", zap.Stringer("node", n))
}

func (w *World) destroyTree(n *Node) {
	for _, c := range n.children {
		w.destroyTree(c)
	}
	n.children = nil
	n.parent = nil
	n.active = false
	n.destroyed = true
	w.live -= 1
	w.destroyed += 1
}

func (w *World) setParent(n, parent *Node) {
	if n.parent == parent {
		return
	}
	if old := n.parent; old != nil {
		if i := lo.IndexOf(old.children, n); i >= 0 {
			old.children = slices.Delete(old.children, i, i+1)
		}
	}
	n.parent = parent
	if parent != nil {
		parent.children = append(parent.children, n)
	}
}

// SetActive sets the node's own activity flag.
func (w *World) SetActive(n *Node, active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n.destroyed {
		return
	}
	n.active = active
}

// IsActive reports the node's own activity flag.
func (w *World) IsActive(n *Node) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return n.active
}

// Attach moves n under parent. A nil parent means the root.
func (w *World) Attach(n *Node, parent *Node) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n.destroyed {
		return
	}
	if parent == nil {
		parent = w.root
	}
	w.setParent(n, parent)
}

// Container returns the node's parent.
func (w *World) Container(n *Node) *Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	return n.parent
}

// ApplyPlacement moves n to pl.
func (w *World) ApplyPlacement(n *Node, pl Placement) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n.placement = pl
}

// Placement returns where n currently is.
func (w *World) Placement(n *Node) Placement {
	w.mu.Lock()
	defer w.mu.Unlock()
	return n.placement
}

// Destroyed reports whether n has been destroyed.
func (w *World) Destroyed(n *Node) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return n.destroyed
}

// Children returns a copy of n's children.
func (w *World) Children(n *Node) []*Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(n.children)
}

// Counts reports how many prefab nodes have been built, and how many nodes
// of any kind have been destroyed or are still live.
type Counts struct {
	Built     int `json:"built"`
	Destroyed int `json:"destroyed"`
	Live      int `json:"live"`
}

func (w *World) Counts() Counts {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Counts{
		Built:     w.built,
		Destroyed: w.destroyed,
		Live:      w.live,
	}
}
