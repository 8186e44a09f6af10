// Package scene drives a simulation from outside: the initial block, the
// collider set, periodic emitters, timed despawns and moving walls.
package scene

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/systems"
)

// ErrUnknownCollider is returned when a wave wall names a collider that
// is not in the scene.
var ErrUnknownCollider = errors.New("scene: unknown collider")

// Target is the part of the simulation a scene drives.
type Target interface {
	Spawn(pos, vel r3.Vec) (sim.Handle, error)
	Despawn(h sim.Handle) error
	SetColliders(colliders []systems.PlaneCollider) error
	Len() int
}

// Scene holds the scripted inputs of one run.
type Scene struct {
	rng       *rand.Rand
	sched     Scheduler
	block     Block
	colliders []systems.PlaneCollider
	emitters  []Emitter
	walls     []WaveWall
	despawn   Despawner

	target   Target
	lastTime float64
	spawned  int
}

// New builds a scene. Wave wall collider indices must refer to colliders.
func New(seed uint64, block Block, colliders []systems.PlaneCollider, emitters []Emitter, walls []WaveWall, despawnAfter float64) (*Scene, error) {
	for i, w := range walls {
		if w.Collider < 0 || w.Collider >= len(colliders) {
			return nil, fmt.Errorf("wave wall %d: %w: index %d", i, ErrUnknownCollider, w.Collider)
		}
		if !(w.Period > 0) {
			return nil, fmt.Errorf("wave wall %d: period must be positive, got %v", i, w.Period)
		}
	}
	for i, e := range emitters {
		if !(e.Interval > 0) {
			return nil, fmt.Errorf("emitter %d: interval must be positive, got %v", i, e.Interval)
		}
	}

	s := &Scene{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		block:     block,
		colliders: append([]systems.PlaneCollider(nil), colliders...),
		emitters:  append([]Emitter(nil), emitters...),
		walls:     append([]WaveWall(nil), walls...),
	}
	s.despawn = Despawner{After: despawnAfter, sched: &s.sched}
	return s, nil
}

// FromConfig builds a scene from the scene section of cfg.
func FromConfig(cfg *config.Config) (*Scene, error) {
	sc := cfg.Scene

	block := Block{
		Count:    sc.Block.Count,
		Origin:   config.Vec3(sc.Block.Origin),
		Spacing:  sc.Block.Spacing,
		Jitter:   sc.Block.Jitter,
		Velocity: config.Vec3(sc.Block.Velocity),
	}

	colliders := make([]systems.PlaneCollider, len(sc.Colliders))
	for i, c := range sc.Colliders {
		colliders[i] = systems.PlaneCollider{
			Position:    config.Vec3(c.Position),
			Right:       config.Vec3(c.Right),
			Up:          config.Vec3(c.Up),
			HalfExtents: r2.Vec{X: c.HalfExtents[0], Y: c.HalfExtents[1]},
		}
	}

	emitters := make([]Emitter, len(sc.Emitters))
	for i, e := range sc.Emitters {
		emitters[i] = Emitter{
			Position: config.Vec3(e.Position),
			Spread:   e.Spread,
			Velocity: config.Vec3(e.Velocity),
			Interval: e.Interval,
			Count:    e.Count,
			Limit:    e.Limit,
		}
	}

	walls := make([]WaveWall, len(sc.WaveWalls))
	for i, w := range sc.WaveWalls {
		idx, ok := cfg.Derived.ColliderIndex[w.Collider]
		if !ok {
			return nil, fmt.Errorf("wave wall %d: %w: %q", i, ErrUnknownCollider, w.Collider)
		}
		walls[i] = WaveWall{
			Collider: idx,
			From:     config.Vec3(w.From),
			To:       config.Vec3(w.To),
			Speed:    w.Speed,
			Period:   w.Period,
		}
	}

	return New(uint64(sc.Seed), block, colliders, emitters, walls, sc.DespawnAfter)
}

// Setup spawns the initial block, publishes the colliders and schedules
// emitters and wall reversals. It is called once, at time zero.
func (s *Scene) Setup(t Target) error {
	s.bind(t)

	if err := t.SetColliders(s.colliders); err != nil {
		return fmt.Errorf("setting colliders: %w", err)
	}

	for _, p := range s.block.Positions(s.rng) {
		if _, err := t.Spawn(p, s.block.Velocity); err != nil {
			return fmt.Errorf("spawning block: %w", err)
		}
		s.spawned++
	}

	for i := range s.emitters {
		e := &s.emitters[i]
		err := s.sched.Every(e.Interval, func(float64) error {
			return e.emit(s.target, s.rng, s.track)
		})
		if err != nil {
			return err
		}
	}

	for i := range s.walls {
		w := &s.walls[i]
		// Head for the shore first.
		w.toShore = true
		if err := s.sched.Every(w.Period, func(float64) error {
			w.turn()
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// Advance runs everything due up to now and moves the walls by the time
// elapsed since the previous call.
func (s *Scene) Advance(t Target, now float64) error {
	s.bind(t)

	if err := s.sched.Advance(now); err != nil {
		return err
	}

	dt := now - s.lastTime
	s.lastTime = now

	moved := false
	for i := range s.walls {
		w := &s.walls[i]
		c := &s.colliders[w.Collider]
		pos, ok := w.move(c.Position, dt)
		if ok {
			c.Position = pos
			moved = true
		}
	}
	if moved {
		if err := t.SetColliders(s.colliders); err != nil {
			return fmt.Errorf("moving walls: %w", err)
		}
	}
	return nil
}

func (s *Scene) bind(t Target) {
	s.target = t
	s.despawn.target = t
}

func (s *Scene) track(h sim.Handle) {
	s.spawned++
	s.despawn.Track(h)
}

// Colliders returns a copy of the scene's current collider set.
func (s *Scene) Colliders() []systems.PlaneCollider {
	return append([]systems.PlaneCollider(nil), s.colliders...)
}

// Spawned returns the number of particles the scene has spawned.
func (s *Scene) Spawned() int { return s.spawned }

// Despawned returns the number of particles the scene has removed.
func (s *Scene) Despawned() int { return s.despawn.Removed() }

// Pending returns the number of scheduled tasks.
func (s *Scene) Pending() int { return s.sched.Len() }
