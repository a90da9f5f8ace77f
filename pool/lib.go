package pool

// Factory builds and destroys resources.
// Destroy is best-effort and is assumed not to fail.
type Factory[T, In, Pl any] interface {
	Construct(in In, pl Pl) (T, error)
	Destroy(obj T)
}

// Host reflects a resource's activity and attachment in the runtime that
// owns it. Implementations must not call back into the pool synchronously:
// the pool holds its lock while calling them.
type Host[T, Pl, C any] interface {
	SetActive(obj T, active bool)
	IsActive(obj T) bool
	Attach(obj T, parent C)
	Container(obj T) C
	ApplyPlacement(obj T, pl Pl)
}

// ReleaseFunc hands a resource back to the pool that built it.
type ReleaseFunc[T any] func(obj T, capacity int)

// Poolable is implemented by resources that can release themselves.
// The pool sets the release func once, when it constructs the resource.
type Poolable[T any] interface {
	SetReleaseFunc(fn ReleaseFunc[T])
}

// Observer is notified of pool transitions. Calls are made with the pool
// lock held.
type Observer interface {
	Constructed()
	Reused()
	Pooled()
	Destroyed()
	Sizes(active, inactive int)
}

type nopObserver struct{}

func (nopObserver) Constructed() {}
func (nopObserver) Reused() {}
func (nopObserver) Pooled() {}
func (nopObserver) Destroyed() {}
func (nopObserver) Sizes(int, int) {}
