package sim

import (
	"github.com/mlange-42/ark/ecs"
)

// gather copies every live particle into the dense store (single-threaded).
func (s *Simulation) gather() {
	s.store.Reset()
	s.entities = s.entities[:0]
	s.ids = s.ids[:0]

	query := s.filter.Query()
	for query.Next() {
		pos, vel, _, part := query.Get()
		s.store.Append(pos.Vec, vel.Vec)
		s.entities = append(s.entities, query.Entity())
		s.ids = append(s.ids, part.ID)
	}
}

// apply writes the store back to the world, removes faulted particles and
// builds the frame (single-threaded, preserves determinism).
func (s *Simulation) apply() Frame {
	st := s.store
	frame := Frame{Particles: make([]ParticleView, 0, st.Len())}

	var faulted []ecs.Entity
	for i, entity := range s.entities {
		h := Handle{entity: entity, id: s.ids[i]}
		if st.Faulted[i] {
			faulted = append(faulted, entity)
			frame.Faulted = append(frame.Faulted, h)
			continue
		}

		pos, vel, fluid, _ := s.mapper.Get(entity)
		pos.Vec = st.Pos[i]
		vel.Vec = st.Vel[i]
		fluid.Force = st.Force[i]
		fluid.Density = st.Density[i]
		fluid.Pressure = st.Pressure[i]

		frame.Particles = append(frame.Particles, ParticleView{
			Handle:   h,
			Position: st.Pos[i],
			Velocity: st.Vel[i],
			Density:  st.Density[i],
			Pressure: st.Pressure[i],
		})
	}

	// Remove after iteration completes
	for _, entity := range faulted {
		s.world.RemoveEntity(entity)
		s.count--
	}
	return frame
}
