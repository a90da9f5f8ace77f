package pool

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/superfly/spawnpool/registry"
	"github.com/superfly/spawnpool/stats"
)

var (
	// ErrConstructionFailed wraps factory errors returned from Acquire.
	ErrConstructionFailed = errors.New("pool: construction failed")
	// ErrInvalidRelease is returned by a strict pool when releasing a resource
	// it does not currently hold as active.
	ErrInvalidRelease = errors.New("pool: invalid release")
	// ErrNilCollaborator is returned by New when the factory, host or
	// registry is missing.
	ErrNilCollaborator = errors.New("pool: nil collaborator")
)

const (
	statsConstruct = "construct"
	statsDestroy   = "destroy"
	statsAcquire   = "acquire"
	statsRelease   = "release"
)

type state int

const (
	stateActive state = iota + 1
	stateInactive
)

// Pool recycles resources of type T.
//
// Every resource it has built is in exactly one of its active list, its
// inactive list, or destroyed. Acquire reuses the longest-waiting inactive
// resource before constructing a new one. Release puts a resource back on
// the inactive list unless that list has already reached the capacity
// given to that call, in which case the resource is destroyed.
type Pool[T comparable, In, Pl any, C comparable] struct {
	name     string
	factory  Factory[T, In, Pl]
	host     Host[T, Pl, C]
	shared   *registry.Registry[C]
	log      *zap.Logger
	observer Observer
	stats    *stats.Set
	strict   bool

	// release is the callback wired into Poolable resources. It is bound to
	// this pool once, in New, so every resource gets the same func.
	release ReleaseFunc[T]

	mu       sync.Mutex
	active   []T
	inactive []T
	states   map[T]state // only maintained by strict pools
}

type options struct {
	log      *zap.Logger
	observer Observer
	strict   bool
}

type Opt func(*options)

// WithLogger sets the logger used for pool events. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Opt {
	return func(o *options) { o.log = log }
}

// WithObserver sets an observer notified of every pool transition.
func WithObserver(obs Observer) Opt {
	return func(o *options) { o.observer = obs }
}

// Strict makes Release reject resources that are not currently active in
// this pool with ErrInvalidRelease, instead of silently accepting them.
func Strict() Opt {
	return func(o *options) { o.strict = true }
}

// New creates an empty pool. Name is used only in logs and errors.
// Shared provides the container that constructed and pooled resources are
// attached to when no explicit container is given.
func New[T comparable, In, Pl any, C comparable](
	name string,
	factory Factory[T, In, Pl],
	host Host[T, Pl, C],
	shared *registry.Registry[C],
	opts ...Opt,
) (*Pool[T, In, Pl, C], error) {
	if factory == nil || host == nil || shared == nil {
		return nil, fmt.Errorf("%w: pool %s", ErrNilCollaborator, name)
	}

	o := options{
		log:      zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool[T, In, Pl, C]{
		name:     name,
		factory:  factory,
		host:     host,
		shared:   shared,
		log:      o.log.With(zap.String("pool", name)),
		observer: o.observer,
		stats:    stats.NewSet(statsConstruct, statsDestroy, statsAcquire, statsRelease),
		strict:   o.strict,
	}
	if p.strict {
		p.states = make(map[T]state)
	}
	p.release = func(obj T, capacity int) {
		if err := p.Release(obj, capacity); err != nil {
			p.log.Warn("pool: self release failed", zap.Error(err))
		}
	}
	return p, nil
}

// Name returns the pool's name.
func (p *Pool[T, In, Pl, C]) Name() string {
	return p.name
}

type acquireOpts[C any] struct {
	container    C
	hasContainer bool
}

type AcquireOpt[C any] func(*acquireOpts[C])

// Into attaches the acquired resource to container, on both the reuse and
// the construction path.
func Into[C any](container C) AcquireOpt[C] {
	return func(o *acquireOpts[C]) {
		o.container = container
		o.hasContainer = true
	}
}

// Acquire returns an active resource, reusing the oldest inactive one if
// there is any and constructing a new one with in otherwise.
//
// Placement is always applied. Without Into, a newly constructed resource
// is attached to the shared container but a reused one keeps whatever
// attachment it already has. Release normally leaves pooled resources under
// the shared container, so the two usually agree.
//
// Construction errors wrap ErrConstructionFailed and leave the pool unchanged.
func (p *Pool[T, In, Pl, C]) Acquire(in In, pl Pl, opts ...AcquireOpt[C]) (T, error) {
	var o acquireOpts[C]
	for _, opt := range opts {
		opt(&o)
	}

	dt := p.stats.Get(statsAcquire).Start()
	defer dt.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	var obj T
	if len(p.inactive) > 0 {
		obj = p.inactive[0]
		p.inactive = slices.Delete(p.inactive, 0, 1)
		p.host.SetActive(obj, true)
		p.observer.Reused()
		p.log.Debug("pool: reuse", zap.Int("inactive", len(p.inactive)))
	} else {
		var err error
		obj, err = p.construct(in, pl)
		if err != nil {
			var zero T
			return zero, err
		}
		if !o.hasContainer {
			p.host.Attach(obj, p.shared.Container())
		}
	}

	if o.hasContainer {
		p.host.Attach(obj, o.container)
	}
	p.host.ApplyPlacement(obj, pl)

	p.active = append(p.active, obj)
	if p.strict {
		p.states[obj] = stateActive
	}
	p.observer.Sizes(len(p.active), len(p.inactive))
	return obj, nil
}

// construct builds a new resource and wires its release func.
// This is the only place a release func is ever set.
func (p *Pool[T, In, Pl, C]) construct(in In, pl Pl) (T, error) {
	dt := p.stats.Get(statsConstruct).Start()
	obj, err := p.factory.Construct(in, pl)
	dt.End()
	if err != nil {
		p.log.Warn("pool: construct failed", zap.Error(err))
		var zero T
		return zero, fmt.Errorf("%w: pool %s: %w", ErrConstructionFailed, p.name, err)
	}

	if poolable, ok := any(obj).(Poolable[T]); ok {
		poolable.SetReleaseFunc(p.release)
	}

	p.observer.Constructed()
	p.log.Debug("pool: construct", zap.Int("active", len(p.active)+1))
	return obj, nil
}

// Release returns obj to the pool, or destroys it if the inactive list
// already holds capacity resources. Capacity is checked against the size of
// the inactive list before this call; resources pooled earlier under a larger
// capacity are not evicted.
//
// A resource that is not active in this pool is still deactivated (or
// destroyed, when full) but never added to the inactive list. Callers must
// not release resources the pool did not produce. Strict pools reject such
// calls with ErrInvalidRelease and leave the resource alone.
func (p *Pool[T, In, Pl, C]) Release(obj T, capacity int) error {
	dt := p.stats.Get(statsRelease).Start()
	defer dt.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.strict && p.states[obj] != stateActive {
		return fmt.Errorf("%w: pool %s: resource is not active", ErrInvalidRelease, p.name)
	}

	full := len(p.inactive) >= capacity

	pooled := false
	if i := lo.IndexOf(p.active, obj); i >= 0 {
		p.active = slices.Delete(p.active, i, i+1)
		if !full {
			p.inactive = append(p.inactive, obj)
			pooled = true
		}
	}

	if full {
		p.destroy(obj)
		if p.strict {
			delete(p.states, obj)
		}
	} else {
		shared := p.shared.Container()
		if p.host.IsActive(obj) && p.host.Container(obj) != shared {
			p.host.Attach(obj, shared)
		}
		p.host.SetActive(obj, false)
		if p.strict {
			p.states[obj] = stateInactive
		}
		if pooled {
			p.observer.Pooled()
			p.log.Debug("pool: pooled", zap.Int("inactive", len(p.inactive)), zap.Int("capacity", capacity))
		} else {
			p.log.Warn("pool: released resource that was not active")
		}
	}

	p.observer.Sizes(len(p.active), len(p.inactive))
	return nil
}

func (p *Pool[T, In, Pl, C]) destroy(obj T) {
	dt := p.stats.Get(statsDestroy).Start()
	p.factory.Destroy(obj)
	dt.End()

	p.observer.Destroyed()
	p.log.Debug("pool: destroy", zap.Int("inactive", len(p.inactive)))
}

// Drain destroys every inactive resource and returns how many it destroyed.
// Active resources are left alone and can still be released later.
func (p *Pool[T, In, Pl, C]) Drain() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	drained := p.inactive
	p.inactive = nil
	for _, obj := range drained {
		p.destroy(obj)
		if p.strict {
			delete(p.states, obj)
		}
	}

	p.log.Info("pool: drained", zap.Int("destroyed", len(drained)))
	p.observer.Sizes(len(p.active), 0)
	return len(drained)
}

// Len returns the sizes of the active and inactive lists.
func (p *Pool[T, In, Pl, C]) Len() (active, inactive int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active), len(p.inactive)
}

// Active returns a copy of the active list, in acquisition order.
func (p *Pool[T, In, Pl, C]) Active() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.active)
}

// Inactive returns a copy of the inactive list, oldest first.
func (p *Pool[T, In, Pl, C]) Inactive() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.inactive)
}

// Stats returns timing statistics, in seconds, for construct, destroy,
// acquire and release.
func (p *Pool[T, In, Pl, C]) Stats() map[string]*stats.Stats {
	return p.stats.Snapshot()
}
