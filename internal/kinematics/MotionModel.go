// Package kinematics defines the MotionModel interface for longitudinal vehicle
// propagation, along with the closed-form constant-acceleration model and the
// time-to-event helpers built on it.
//
// Distances are metres, velocities m/s, accelerations m/s² and time seconds.
package kinematics

// MotionModel is the physics contract every longitudinal propagation model must satisfy.
type MotionModel interface {
	// Step advances a vehicle travelling at v under commanded acceleration a
	// for dt seconds. Returns (distance travelled, new velocity).
	Step(v, a, dt float64) (ds, newV float64)
}
