package kinematics

import "math"

// ConstantAcceleration implements MotionModel with the closed form
//
//	ds = v·dt + a·dt²/2,  v' = v + a·dt
//
// When NoBackup is set both ds and v' are clamped at zero, so a braking vehicle
// stops instead of reversing.
type ConstantAcceleration struct {
	NoBackup bool
}

func (c ConstantAcceleration) Step(v, a, dt float64) (float64, float64) {
	ds := v*dt + 0.5*a*dt*dt
	newV := v + a*dt
	if c.NoBackup {
		ds = math.Max(0, ds)
		newV = math.Max(0, newV)
	}
	return ds, newV
}

// TimeToTravel returns the earliest time t ≥ 0 at which a vehicle at speed v
// with constant acceleration a has covered distance d, i.e. the smallest
// non-negative root of v·t + a·t²/2 = d.
//
// Unreachable targets return +Inf: a negative distance, a negative
// discriminant (the vehicle stops first), zero acceleration without forward
// speed, and roots that are all negative.
func TimeToTravel(d, v, a float64) float64 {
	if d < 0 {
		return math.Inf(1)
	}
	if d == 0 {
		return 0
	}
	if a == 0 {
		if v <= 0 {
			return math.Inf(1)
		}
		return d / v
	}
	disc := v*v + 2*a*d
	if disc < 0 {
		return math.Inf(1)
	}
	t := (-v + math.Sqrt(disc)) / a
	if t < 0 {
		return math.Inf(1)
	}
	return t
}

// TimeToCollision returns the time for a follower to close a gap to its leader,
// given the closing speed (follower minus leader) and closing acceleration.
// Returns +Inf when the gap never closes.
func TimeToCollision(gap, closingSpeed, closingAccel float64) float64 {
	return TimeToTravel(gap, closingSpeed, closingAccel)
}
