package scene

import (
	"errors"

	"github.com/pthm-cable/sph/sim"
)

// Despawner removes particles a fixed time after they were registered.
type Despawner struct {
	After float64

	sched   *Scheduler
	target  Target
	removed int
}

// Track schedules h for removal. Particles that are already gone, for
// example removed as faulted, are skipped.
func (d *Despawner) Track(h sim.Handle) {
	if d.After <= 0 {
		return
	}
	d.sched.After(d.After, func(float64) error {
		err := d.target.Despawn(h)
		if errors.Is(err, sim.ErrUnknownParticle) {
			return nil
		}
		if err == nil {
			d.removed++
		}
		return err
	})
}

// Removed returns the number of particles despawned so far.
func (d *Despawner) Removed() int { return d.removed }
