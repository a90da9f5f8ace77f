package sim

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limEntry struct {
	rlim *rate.Limiter
	exp  time.Time
}

// Limiter is a rate limiter keyed by a string. Buckets that have not been
// used for bucketLife are dropped.
//
// Time is passed in by the caller so the simulation can run on its own
// clock.
type Limiter struct {
	r    rate.Limit
	b    int
	life time.Duration

	mu  sync.Mutex
	lim map[string]*limEntry
}

func NewLimiter(r rate.Limit, b int, bucketLife time.Duration) *Limiter {
	return &Limiter{
		r:    r,
		b:    b,
		lim:  make(map[string]*limEntry),
		life: bucketLife,
	}
}

func (p *Limiter) clean(now time.Time) {
	for k, lim := range p.lim {
		if lim.exp.Before(now) {
			delete(p.lim, k)
		}
	}
}

// AllowAt reports whether an event keyed by k may happen at now.
func (p *Limiter) AllowAt(k string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clean(now)
	l := p.lim[k]
	if l == nil {
		l = &limEntry{rlim: rate.NewLimiter(p.r, p.b)}
		p.lim[k] = l
	}
	l.exp = now.Add(p.life)
	return l.rlim.AllowN(now, 1)
}

// Allow is AllowAt on the wall clock.
func (p *Limiter) Allow(k string) bool {
	return p.AllowAt(k, time.Now())
}

// Len returns the number of live buckets.
func (p *Limiter) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lim)
}
