package sim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sph/components"
	"github.com/pthm-cable/sph/systems"
)

// Spawn adds a particle at pos with initial velocity vel. Force, density
// and pressure start at zero and are computed by the next step.
func (s *Simulation) Spawn(pos, vel r3.Vec) (Handle, error) {
	if !systems.Finite(pos) || !systems.Finite(vel) {
		return Handle{}, fmt.Errorf("%w: pos %v vel %v", ErrInvalidParticle, pos, vel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Handle{}, ErrClosed
	}

	id := s.nextID
	s.nextID++

	p := components.Position{Vec: pos}
	v := components.Velocity{Vec: vel}
	fluid := components.Fluid{}
	part := components.Particle{ID: id, SpawnTime: s.time}
	entity := s.mapper.NewEntity(&p, &v, &fluid, &part)
	s.count++

	return Handle{entity: entity, id: id}, nil
}

// Despawn removes a particle. Despawning a particle twice, or one removed
// as faulted, returns ErrUnknownParticle.
func (s *Simulation) Despawn(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.alive(h) {
		return fmt.Errorf("%w: id %d", ErrUnknownParticle, h.id)
	}

	s.world.RemoveEntity(h.entity)
	s.count--
	return nil
}

// Particle returns the current state of a live particle.
func (s *Simulation) Particle(h Handle) (ParticleView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive(h) {
		return ParticleView{}, fmt.Errorf("%w: id %d", ErrUnknownParticle, h.id)
	}

	pos, vel, fluid, _ := s.mapper.Get(h.entity)
	return ParticleView{
		Handle:   h,
		Position: pos.Vec,
		Velocity: vel.Vec,
		Density:  fluid.Density,
		Pressure: fluid.Pressure,
	}, nil
}

// alive reports whether h still refers to the particle it was issued for.
func (s *Simulation) alive(h Handle) bool {
	if h.IsZero() || !s.world.Alive(h.entity) {
		return false
	}
	part := s.particleMap.Get(h.entity)
	return part != nil && part.ID == h.id
}
