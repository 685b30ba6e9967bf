package scene

import (
	"github.com/cxd309/merge-engine/internal/kinematics"
	"github.com/cxd309/merge-engine/internal/roadway"
)

// WrapTolerance is how close to the end of the main lane a background vehicle
// must be before it respawns at the start.
const WrapTolerance = 2.0

// Propagate advances e for dt seconds under commanded acceleration a and
// returns the moved entity. With noBackup the displacement and the new speed
// are clamped at zero.
func Propagate(road *roadway.Roadway, e Entity, a, dt float64, noBackup bool) Entity {
	var m kinematics.MotionModel = kinematics.ConstantAcceleration{NoBackup: noBackup}
	ds, v := m.Step(e.V, a, dt)
	e.Lane, e.S = road.Advance(e.Lane, e.S, ds)
	e.V = v
	return e
}

// WrapAround relocates a background vehicle that has reached the end of the
// main lane back to its start, keeping its speed. The ego and merge lane
// vehicles are returned unchanged.
func WrapAround(road *roadway.Roadway, e Entity) Entity {
	if e.IsEgo() || e.Lane != roadway.MainLane {
		return e
	}
	if e.S >= road.LaneEnd(roadway.MainLane)-WrapTolerance {
		e.S = 0
	}
	return e
}
