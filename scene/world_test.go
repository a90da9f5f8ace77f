package scene

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestConstructAndDestroy(t *testing.T) {
	w := NewWorld()

	_, err := w.Construct(Prefab{}, Placement{})
	assert.True(t, errors.Is(err, ErrUnknownPrefab))

	pl := Placement{Position: Vec3{1, 2, 3}, Heading: 90}
	n, err := w.Construct(Prefab{Kind: "rock"}, pl)
	assert.NoError(t, err)
	assert.Equal(t, "rock", n.Kind())
	assert.Equal(t, "rock-1", n.Name())
	assert.True(t, w.IsActive(n))
	assert.True(t, w.Container(n) == w.Root())
	assert.Equal(t, pl, w.Placement(n))
	assert.Equal(t, Counts{Built: 1, Live: 2}, w.Counts())

	w.Destroy(n)
	w.Destroy(n)
	assert.True(t, w.Destroyed(n))
	assert.False(t, w.IsActive(n))
	assert.Zero(t, w.Container(n))
	assert.Equal(t, 0, len(w.Children(w.Root())))
	assert.Equal(t, Counts{Built: 1, Destroyed: 1, Live: 1}, w.Counts())
}

func TestAttachMovesBetweenParents(t *testing.T) {
	w := NewWorld()
	a := w.NewGroup("a")
	b := w.NewGroup("b")
	n, err := w.Construct(Prefab{Kind: "rock"}, Placement{})
	assert.NoError(t, err)

	w.Attach(n, a)
	assert.Equal(t, []*Node{n}, w.Children(a))

	w.Attach(n, b)
	assert.Equal(t, 0, len(w.Children(a)))
	assert.Equal(t, []*Node{n}, w.Children(b))

	w.Attach(n, nil)
	assert.True(t, w.Container(n) == w.Root())
}

func TestDestroyGroupDestroysChildren(t *testing.T) {
	w := NewWorld()
	g := w.NewGroup("g")
	n, err := w.Construct(Prefab{Kind: "rock"}, Placement{})
	assert.NoError(t, err)
	w.Attach(n, g)

	w.Destroy(g)
	assert.True(t, w.Destroyed(n))

	// destroyed nodes ignore further host calls
	w.SetActive(n, true)
	w.Attach(n, w.Root())
	assert.False(t, w.IsActive(n))
	assert.Zero(t, w.Container(n))
}

func TestReleaseWithoutPool(t *testing.T) {
	w := NewWorld()
	n, err := w.Construct(Prefab{Kind: "rock"}, Placement{})
	assert.NoError(t, err)
	assert.False(t, n.Release(1))
	assert.Equal(t, 0, n.Wirings())
}

func TestSetReleaseFunc(t *testing.T) {
	n := &Node{id: 7, name: "x"}
	var got *Node
	var gotCap int
	n.SetReleaseFunc(func(obj *Node, capacity int) {
		got, gotCap = obj, capacity
	})

	assert.True(t, n.Release(3))
	assert.True(t, got == n)
	assert.Equal(t, 3, gotCap)
	assert.Equal(t, 1, n.Wirings())
	assert.Equal(t, "x#7", n.String())
	assert.Equal(t, 7, n.ID())
}

func TestNewPoolUsesRegistry(t *testing.T) {
	w := NewWorld()
	reg := NewRegistry(w, "Pool")
	p, err := NewPool("rocks", w, reg)
	assert.NoError(t, err)
	assert.Equal(t, "rocks", p.Name())

	n, err := p.Acquire(Prefab{Kind: "rock"}, Placement{})
	assert.NoError(t, err)
	assert.Equal(t, "Pool", w.Container(n).Name())
	assert.Equal(t, 1, n.Wirings())
}
