package stats

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Collector incrementally collects count, average, variance, and standard deviation
// via the Add() method using Welford's algorithm.
// Reference: https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
type Collector struct {
	mu        sync.Mutex
	count     float64
	min       float64
	max       float64
	avg       float64
	meanDist2 float64
}

// New returns a new statistics collector.
func New() *Collector {
	c := &Collector{}
	c.Reset()
	return c
}

// Reset discards everything collected so far.
func (p *Collector) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count = 0
	p.min = math.Inf(1)
	p.max = math.Inf(-1)
	p.avg = 0
	p.meanDist2 = 0
}

// Add accumulates `x` into the collected statistics.
func (p *Collector) Add(x float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count += 1.0
	if x < p.min {
		p.min = x
	}
	if x > p.max {
		p.max = x
	}
	delta := x - p.avg
	p.avg += delta / p.count
	delta2 := x - p.avg
	p.meanDist2 += delta * delta2
}

type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Var    float64 `json:"var"`
	StdDev float64 `json:"stddev"`
}

// Stats processes the collected statistics and returns it.
// With nothing collected, Avg, Var and StdDev are NaN.
func (p *Collector) Stats() *Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	avg := p.avg
	if p.count == 0 {
		avg /= p.count // we want NaN
	}

	v := p.meanDist2 / p.count
	return &Stats{
		Count:  int(p.count),
		Min:    p.min,
		Max:    p.max,
		Avg:    avg,
		Var:    v,
		StdDev: math.Sqrt(v),
	}
}

type Timer struct {
	c     *Collector
	start time.Time
}

// Start starts a duration measurement.
func (p *Collector) Start() Timer {
	return Timer{p, time.Now()}
}

// End finishes a duration measurement, adds the number of seconds into the
// collected statistics and returns the measured duration.
func (p *Timer) End() time.Duration {
	dt := time.Since(p.start)
	p.c.Add(dt.Seconds())
	return dt
}

// Set is a fixed group of named collectors, one per measured operation.
type Set struct {
	names []string
	cs    map[string]*Collector
}

// NewSet returns a set with one collector for each name.
func NewSet(names ...string) *Set {
	s := &Set{cs: make(map[string]*Collector, len(names))}
	for _, name := range names {
		if _, ok := s.cs[name]; ok {
			continue
		}
		s.names = append(s.names, name)
		s.cs[name] = New()
	}
	sort.Strings(s.names)
	return s
}

// Get returns the named collector, or nil if the set has no such name.
func (s *Set) Get(name string) *Collector {
	return s.cs[name]
}

// Names returns the collector names in sorted order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Snapshot returns the current statistics of every collector in the set.
func (s *Set) Snapshot() map[string]*Stats {
	out := make(map[string]*Stats, len(s.cs))
	for name, c := range s.cs {
		out[name] = c.Stats()
	}
	return out
}
