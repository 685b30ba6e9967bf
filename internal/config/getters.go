package config

import "math"

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func getString(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func getSlice(s, def []float64) []float64 {
	if len(s) == 0 {
		s = def
	}
	return append([]float64(nil), s...)
}

func (c *EnvironmentConfig) GetMainLaneLength() float64   { return getFloat(c.MainLaneLength, 100) }
func (c *EnvironmentConfig) GetAfterMergeLength() float64 { return getFloat(c.AfterMergeLength, 50) }
func (c *EnvironmentConfig) GetMergeLaneLength() float64  { return getFloat(c.MergeLaneLength, 50) }
func (c *EnvironmentConfig) GetLaneWidth() float64        { return getFloat(c.LaneWidth, 3) }
func (c *EnvironmentConfig) GetMergeAngle() float64       { return getFloat(c.MergeAngle, math.Pi/6) }
func (c *EnvironmentConfig) GetVehicleLength() float64    { return getFloat(c.VehicleLength, 4) }
func (c *EnvironmentConfig) GetVehicleWidth() float64     { return getFloat(c.VehicleWidth, 1.8) }

func (c *EnvironmentConfig) GetTimeStep() float64 { return getFloat(c.TimeStep, 0.5) }

// GetJerkLevels returns a copy of the five jerk increments for actions 2-6.
func (c *EnvironmentConfig) GetJerkLevels() []float64 {
	return getSlice(c.JerkLevels, []float64{-1, -0.5, 0, 0.5, 1})
}

// GetAccelLevels returns a copy of the legacy six-level acceleration grid.
func (c *EnvironmentConfig) GetAccelLevels() []float64 {
	return getSlice(c.AccelLevels, []float64{-4, -2, -1, 0, 1, 2})
}

func (c *EnvironmentConfig) GetMaxAcceleration() float64  { return getFloat(c.MaxAcceleration, 2) }
func (c *EnvironmentConfig) GetMaxDeceleration() float64  { return getFloat(c.MaxDeceleration, -4) }
func (c *EnvironmentConfig) GetMainLaneMaxSpeed() float64 { return getFloat(c.MainLaneMaxSpeed, 15) }

func (c *EnvironmentConfig) GetGoalReward() float64    { return getFloat(c.GoalReward, 1) }
func (c *EnvironmentConfig) GetCollisionCost() float64 { return getFloat(c.CollisionCost, -1) }
func (c *EnvironmentConfig) GetHardBrakeCost() float64 { return getFloat(c.HardBrakeCost, 0) }
func (c *EnvironmentConfig) GetDiscount() float64      { return getFloat(c.Discount, 0.95) }

func (c *EnvironmentConfig) GetNCars() int          { return getInt(c.NCars, 10) }
func (c *EnvironmentConfig) GetMinCars() int        { return getInt(c.MinCars, 1) }
func (c *EnvironmentConfig) GetMaxCars() int        { return getInt(c.MaxCars, 12) }
func (c *EnvironmentConfig) GetRandomNCars() bool   { return getBool(c.RandomNCars, false) }
func (c *EnvironmentConfig) GetInitialVelocity() float64 {
	return getFloat(c.InitialVelocity, 5)
}
func (c *EnvironmentConfig) GetInitialVelocityStd() float64 {
	return getFloat(c.InitialVelocityStd, 1)
}
func (c *EnvironmentConfig) GetInitialEgoVelocity() float64 {
	return getFloat(c.InitialEgoVelocity, 10)
}
func (c *EnvironmentConfig) GetTrafficSpeed() string {
	return getString(c.TrafficSpeed, TrafficSpeedMixed)
}
func (c *EnvironmentConfig) GetDesiredSpeed() float64 { return getFloat(c.DesiredSpeed, 5) }
func (c *EnvironmentConfig) GetMixedSpeeds() []float64 {
	return getSlice(c.MixedSpeeds, []float64{4, 5, 6})
}
func (c *EnvironmentConfig) GetMixedSpeedWeights() []float64 {
	return getSlice(c.MixedSpeedWeights, []float64{0.2, 0.3, 0.5})
}
func (c *EnvironmentConfig) GetCooperationPolicy() string {
	return getString(c.CooperationPolicy, CooperationUniform)
}
func (c *EnvironmentConfig) GetCooperation() float64       { return getFloat(c.Cooperation, 0.5) }
func (c *EnvironmentConfig) GetBinaryCooperation() float64 { return getFloat(c.BinaryCooperation, 0.3) }
func (c *EnvironmentConfig) GetMinBurnIn() int             { return getInt(c.MinBurnIn, 10) }
func (c *EnvironmentConfig) GetMaxBurnIn() int             { return getInt(c.MaxBurnIn, 20) }

func (c *EnvironmentConfig) GetObserveSpeed() bool       { return getBool(c.ObserveSpeed, true) }
func (c *EnvironmentConfig) GetObserveCooperation() bool { return getBool(c.ObserveCooperation, false) }

func (c *EnvironmentConfig) GetIDMMinGap() float64       { return getFloat(c.IDMMinGap, 2) }
func (c *EnvironmentConfig) GetIDMTimeHeadway() float64  { return getFloat(c.IDMTimeHeadway, 1.5) }
func (c *EnvironmentConfig) GetIDMMaxAccel() float64     { return getFloat(c.IDMMaxAccel, 2) }
func (c *EnvironmentConfig) GetIDMComfortDecel() float64 { return getFloat(c.IDMComfortDecel, 2) }
func (c *EnvironmentConfig) GetIDMMaxDecel() float64     { return getFloat(c.IDMMaxDecel, 9) }
func (c *EnvironmentConfig) GetMergeFOV() float64        { return getFloat(c.MergeFOV, 20) }
func (c *EnvironmentConfig) GetActionNoise() float64     { return getFloat(c.ActionNoise, 0) }
