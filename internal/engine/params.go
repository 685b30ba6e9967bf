package engine

import (
	"fmt"
	"math"

	"github.com/cxd309/merge-engine/internal/config"
	"github.com/cxd309/merge-engine/internal/driver"
	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

// Params is the resolved, immutable environment configuration.
type Params struct {
	Layout  roadway.Layout
	Vehicle scene.VehicleDef

	TimeStep        float64 // seconds
	JerkLevels      []float64
	AccelLevels     []float64 // legacy discretization, kept for reference only
	MaxAcceleration float64
	MaxDeceleration float64 // negative
	MaxSpeed        float64 // main lane speed used for feature scaling

	GoalReward    float64
	CollisionCost float64
	HardBrakeCost float64
	Discount      float64

	NCars       int
	MinCars     int
	MaxCars     int
	RandomNCars bool

	InitialVelocity    float64
	InitialVelocityStd float64
	InitialEgoVelocity float64

	TrafficSpeed      string
	DesiredSpeed      float64
	MixedSpeeds       []float64
	MixedSpeedWeights []float64

	CooperationPolicy string
	Cooperation       float64
	BinaryCooperation float64

	MinBurnIn int
	MaxBurnIn int

	ObserveSpeed       bool
	ObserveCooperation bool

	// IDM parameters shared by all background drivers. DesiredSpeed is
	// drawn per vehicle.
	IDM         driver.IDM
	MergeFOV    float64
	ActionNoise float64
}

// ParamsFrom validates cfg and resolves every field to its value or default.
func ParamsFrom(cfg *config.EnvironmentConfig) (Params, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return Params{}, fmt.Errorf("environment config: %w", err)
	}
	return Params{
		Layout: roadway.Layout{
			MainLength:       cfg.GetMainLaneLength(),
			AfterMergeLength: cfg.GetAfterMergeLength(),
			MergeLength:      cfg.GetMergeLaneLength(),
			LaneWidth:        cfg.GetLaneWidth(),
			MergeAngle:       cfg.GetMergeAngle(),
		},
		Vehicle: scene.VehicleDef{Length: cfg.GetVehicleLength(), Width: cfg.GetVehicleWidth()},

		TimeStep:        cfg.GetTimeStep(),
		JerkLevels:      cfg.GetJerkLevels(),
		AccelLevels:     cfg.GetAccelLevels(),
		MaxAcceleration: cfg.GetMaxAcceleration(),
		MaxDeceleration: cfg.GetMaxDeceleration(),
		MaxSpeed:        cfg.GetMainLaneMaxSpeed(),

		GoalReward:    cfg.GetGoalReward(),
		CollisionCost: cfg.GetCollisionCost(),
		HardBrakeCost: cfg.GetHardBrakeCost(),
		Discount:      cfg.GetDiscount(),

		NCars:       cfg.GetNCars(),
		MinCars:     cfg.GetMinCars(),
		MaxCars:     cfg.GetMaxCars(),
		RandomNCars: cfg.GetRandomNCars(),

		InitialVelocity:    cfg.GetInitialVelocity(),
		InitialVelocityStd: cfg.GetInitialVelocityStd(),
		InitialEgoVelocity: cfg.GetInitialEgoVelocity(),

		TrafficSpeed:      cfg.GetTrafficSpeed(),
		DesiredSpeed:      cfg.GetDesiredSpeed(),
		MixedSpeeds:       cfg.GetMixedSpeeds(),
		MixedSpeedWeights: cfg.GetMixedSpeedWeights(),

		CooperationPolicy: cfg.GetCooperationPolicy(),
		Cooperation:       cfg.GetCooperation(),
		BinaryCooperation: cfg.GetBinaryCooperation(),

		MinBurnIn: cfg.GetMinBurnIn(),
		MaxBurnIn: cfg.GetMaxBurnIn(),

		ObserveSpeed:       cfg.GetObserveSpeed(),
		ObserveCooperation: cfg.GetObserveCooperation(),

		IDM: driver.IDM{
			MinGap:       cfg.GetIDMMinGap(),
			TimeHeadway:  cfg.GetIDMTimeHeadway(),
			MaxAccel:     cfg.GetIDMMaxAccel(),
			ComfortDecel: cfg.GetIDMComfortDecel(),
			MaxDecel:     cfg.GetIDMMaxDecel(),
		},
		MergeFOV:    cfg.GetMergeFOV(),
		ActionNoise: cfg.GetActionNoise(),
	}, nil
}

// Clone returns a copy that shares no slices with p.
func (p Params) Clone() Params {
	p.JerkLevels = append([]float64(nil), p.JerkLevels...)
	p.AccelLevels = append([]float64(nil), p.AccelLevels...)
	p.MixedSpeeds = append([]float64(nil), p.MixedSpeeds...)
	p.MixedSpeedWeights = append([]float64(nil), p.MixedSpeedWeights...)
	return p
}

// Validate checks the invariants the environment relies on. ParamsFrom output
// always passes; hand-built Params are checked by NewFromParams. Car counts are
// left to InitialState.
func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"time step", p.TimeStep},
		{"max acceleration", p.MaxAcceleration},
		{"max speed", p.MaxSpeed},
		{"vehicle length", p.Vehicle.Length},
		{"vehicle width", p.Vehicle.Width},
		{"idm max accel", p.IDM.MaxAccel},
		{"idm comfort decel", p.IDM.ComfortDecel},
		{"idm max decel", p.IDM.MaxDecel},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return invalidParams("%s must be positive, got %v", f.name, f.v)
		}
	}
	if p.MaxDeceleration >= 0 {
		return invalidParams("max deceleration must be negative, got %v", p.MaxDeceleration)
	}
	if len(p.JerkLevels) != ActionRelease-ActionHardBrake-1 {
		return invalidParams("need %d jerk levels, got %d", ActionRelease-ActionHardBrake-1, len(p.JerkLevels))
	}
	if p.MinBurnIn < 0 || p.MaxBurnIn < p.MinBurnIn {
		return invalidParams("burn-in range [%d, %d] is invalid", p.MinBurnIn, p.MaxBurnIn)
	}
	switch p.TrafficSpeed {
	case config.TrafficSpeedMixed:
		if len(p.MixedSpeeds) == 0 || len(p.MixedSpeeds) != len(p.MixedSpeedWeights) {
			return invalidParams("mixed speeds and weights must be non-empty and the same length")
		}
		total := 0.0
		for i, v := range p.MixedSpeeds {
			if !(v > 0) {
				return invalidParams("mixed speeds must be positive, got %v", v)
			}
			if p.MixedSpeedWeights[i] < 0 {
				return invalidParams("mixed speed weights must be non-negative")
			}
			total += p.MixedSpeedWeights[i]
		}
		if total == 0 {
			return invalidParams("mixed speed weights must not all be zero")
		}
	default:
		if !(p.DesiredSpeed > 0) {
			return invalidParams("desired speed must be positive, got %v", p.DesiredSpeed)
		}
	}
	if p.BinaryCooperation < 0 || p.BinaryCooperation > 1 || p.Cooperation < 0 || p.Cooperation > 1 {
		return invalidParams("cooperation values must be between 0 and 1")
	}
	return nil
}

func invalidParams(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", config.ErrInvalid, fmt.Sprintf(format, v...))
}

// maxDecelMagnitude is the positive scale for acceleration features.
func (p Params) maxDecelMagnitude() float64 { return math.Abs(p.MaxDeceleration) }
