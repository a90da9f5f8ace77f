// Package sim drives a scene pool with a tick-based projectile simulation.
//
// Emitters spawn projectiles through the pool, throttled by a per-emitter
// rate limiter running on simulated time. Each projectile lives a fixed
// number of ticks and then releases itself through the callback the pool
// wired into it.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/superfly/spawnpool/config"
	"github.com/superfly/spawnpool/pool"
	"github.com/superfly/spawnpool/scene"
)

const projectileKind = "bullet"

type emitter struct {
	name  string
	group *scene.Node
	pl    scene.Placement
}

type projectile struct {
	node *scene.Node
	age  int
}

// Report summarises a simulation run.
type Report struct {
	Ticks     int          `json:"ticks"`
	Spawned   int          `json:"spawned"`
	Throttled int          `json:"throttled"`
	Released  int          `json:"released"`
	Failed    int          `json:"failed"`
	Active    int          `json:"active"`
	Inactive  int          `json:"inactive"`
	World     scene.Counts `json:"world"`
}

// Simulation is not safe for concurrent use; the pool it drives is.
type Simulation struct {
	log      *zap.Logger
	world    *scene.World
	pool     *scene.Pool
	lim      *Limiter
	tickLen  time.Duration
	now      time.Time
	capacity int
	lifetime int
	interval time.Duration

	emitters []emitter
	live     []*projectile
	report   Report
}

type Opt func(*Simulation)

// Logger sets the logger used for simulation events.
func Logger(log *zap.Logger) Opt {
	return func(s *Simulation) { s.log = log }
}

// TickLength sets how much simulated time passes per tick. Defaults to 100ms.
func TickLength(d time.Duration) Opt {
	return func(s *Simulation) { s.tickLen = d }
}

// Start sets the simulated time of the first tick.
func Start(t time.Time) Opt {
	return func(s *Simulation) { s.now = t }
}

// New creates a simulation with cfg.Emitters emitters, each with its own
// container group in w.
func New(w *scene.World, p *scene.Pool, cfg config.Config, opts ...Opt) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		log:      zap.NewNop(),
		world:    w,
		pool:     p,
		tickLen:  100 * time.Millisecond,
		now:      time.Unix(0, 0),
		capacity: cfg.Capacity,
		lifetime: cfg.Lifetime,
		interval: cfg.TickInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tickLen <= 0 {
		return nil, fmt.Errorf("sim: tick length must be positive, got %s", s.tickLen)
	}

	// buckets outlive any gap between ticks
	s.lim = NewLimiter(rate.Limit(cfg.SpawnRate), cfg.Burst, 10*s.tickLen)
	s.emitters = lo.Times(cfg.Emitters, func(i int) emitter {
		name := fmt.Sprintf("emitter-%d", i)
		return emitter{
			name:  name,
			group: w.NewGroup(name),
			pl: scene.Placement{
				Position: scene.Vec3{X: float64(i)},
				Heading:  360 * float64(i) / float64(cfg.Emitters),
			},
		}
	})
	return s, nil
}

// Step runs one tick at simulated time now. Live projectiles age first and
// those past their lifetime release themselves, then every emitter that is
// allowed to spawns one projectile.
func (s *Simulation) Step(now time.Time) {
	s.report.Ticks++

	s.live = lo.Filter(s.live, func(pr *projectile, _ int) bool {
		pr.age++
		if pr.age < s.lifetime {
			return true
		}
		if !pr.node.Release(s.capacity) {
			if err := s.pool.Release(pr.node, s.capacity); err != nil {
				s.log.Warn("sim: release failed", zap.Stringer("node", pr.node), zap.Error(err))
			}
		}
		s.report.Released++
		return false
	})

	for _, e := range s.emitters {
		if !s.lim.AllowAt(e.name, now) {
			s.report.Throttled++
			continue
		}
		n, err := s.pool.Acquire(scene.Prefab{Kind: projectileKind}, e.pl, pool.Into(e.group))
		if err != nil {
			s.report.Failed++
			s.log.Warn("sim: spawn failed", zap.String("emitter", e.name), zap.Error(err))
			continue
		}
		s.live = append(s.live, &projectile{node: n})
		s.report.Spawned++
	}
}

// Run steps the simulation ticks times, advancing simulated time by the tick
// length each step. With a non-zero tick interval each step waits for a
// wall-clock ticker. Run stops early when ctx is done and returns the
// report so far together with ctx's error.
func (s *Simulation) Run(ctx context.Context, ticks int) (Report, error) {
	var tc <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tc = ticker.C
	}

	s.log.Info("sim: run", zap.Int("ticks", ticks), zap.Int("emitters", len(s.emitters)))
	for i, n := 0, ticks; i < n; i++ {
		if tc != nil {
			select {
			case <-ctx.Done():
				return s.Report(), ctx.Err()
			case <-tc:
			}
		} else if err := ctx.Err(); err != nil {
			return s.Report(), err
		}

		s.Step(s.now)
		s.now = s.now.Add(s.tickLen)
	}

	r := s.Report()
	s.log.Info("sim: done",
		zap.Int("spawned", r.Spawned),
		zap.Int("released", r.Released),
		zap.Int("built", r.World.Built))
	return r, nil
}

// Live returns how many projectiles are in flight.
func (s *Simulation) Live() int {
	return len(s.live)
}

// Report returns the counters so far, with current pool and world sizes.
func (s *Simulation) Report() Report {
	r := s.report
	r.Active, r.Inactive = s.pool.Len()
	r.World = s.world.Counts()
	return r
}
