// Package config loads and validates the merging environment configuration.
//
// The schema is flat: every field is optional and falls back to the default
// returned by its Get* accessor, so partial JSON or YAML files are safe.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Traffic speed policies.
const (
	TrafficSpeedMixed = "mixed"
	TrafficSpeedFixed = "fixed"
)

// Cooperation policies.
const (
	CooperationUniform = "uniform"
	CooperationBinary  = "binary"
	CooperationFixed   = "fixed"
)

// EnvironmentConfig is the root configuration of a merging environment.
type EnvironmentConfig struct {
	// Geometry
	MainLaneLength   *float64 `json:"main_lane_length,omitempty" yaml:"main_lane_length,omitempty"`     // main lane up to the merge point
	AfterMergeLength *float64 `json:"after_merge_length,omitempty" yaml:"after_merge_length,omitempty"` // main lane past the merge point
	MergeLaneLength  *float64 `json:"merge_lane_length,omitempty" yaml:"merge_lane_length,omitempty"`
	LaneWidth        *float64 `json:"lane_width,omitempty" yaml:"lane_width,omitempty"`
	MergeAngle       *float64 `json:"merge_angle,omitempty" yaml:"merge_angle,omitempty"` // radians
	VehicleLength    *float64 `json:"vehicle_length,omitempty" yaml:"vehicle_length,omitempty"`
	VehicleWidth     *float64 `json:"vehicle_width,omitempty" yaml:"vehicle_width,omitempty"`

	// Dynamics and action space
	TimeStep         *float64  `json:"time_step,omitempty" yaml:"time_step,omitempty"` // seconds
	JerkLevels       []float64 `json:"jerk_levels,omitempty" yaml:"jerk_levels,omitempty"`
	AccelLevels      []float64 `json:"accel_levels,omitempty" yaml:"accel_levels,omitempty"` // legacy, documentation only
	MaxAcceleration  *float64  `json:"max_acceleration,omitempty" yaml:"max_acceleration,omitempty"`
	MaxDeceleration  *float64  `json:"max_deceleration,omitempty" yaml:"max_deceleration,omitempty"` // negative
	MainLaneMaxSpeed *float64  `json:"main_lane_max_speed,omitempty" yaml:"main_lane_max_speed,omitempty"`

	// Reward
	GoalReward    *float64 `json:"goal_reward,omitempty" yaml:"goal_reward,omitempty"`
	CollisionCost *float64 `json:"collision_cost,omitempty" yaml:"collision_cost,omitempty"`
	HardBrakeCost *float64 `json:"hard_brake_cost,omitempty" yaml:"hard_brake_cost,omitempty"`
	Discount      *float64 `json:"discount,omitempty" yaml:"discount,omitempty"`

	// Initial state distribution
	NCars              *int      `json:"n_cars,omitempty" yaml:"n_cars,omitempty"`
	MinCars            *int      `json:"min_cars,omitempty" yaml:"min_cars,omitempty"`
	MaxCars            *int      `json:"max_cars,omitempty" yaml:"max_cars,omitempty"`
	RandomNCars        *bool     `json:"random_n_cars,omitempty" yaml:"random_n_cars,omitempty"`
	InitialVelocity    *float64  `json:"initial_velocity,omitempty" yaml:"initial_velocity,omitempty"`
	InitialVelocityStd *float64  `json:"initial_velocity_std,omitempty" yaml:"initial_velocity_std,omitempty"`
	InitialEgoVelocity *float64  `json:"initial_ego_velocity,omitempty" yaml:"initial_ego_velocity,omitempty"`
	TrafficSpeed       *string   `json:"traffic_speed,omitempty" yaml:"traffic_speed,omitempty"`
	DesiredSpeed       *float64  `json:"desired_speed,omitempty" yaml:"desired_speed,omitempty"`
	MixedSpeeds        []float64 `json:"mixed_speeds,omitempty" yaml:"mixed_speeds,omitempty"`
	MixedSpeedWeights  []float64 `json:"mixed_speed_weights,omitempty" yaml:"mixed_speed_weights,omitempty"`
	CooperationPolicy  *string   `json:"cooperation_policy,omitempty" yaml:"cooperation_policy,omitempty"`
	Cooperation        *float64  `json:"cooperation,omitempty" yaml:"cooperation,omitempty"`
	BinaryCooperation  *float64  `json:"binary_cooperation_prob,omitempty" yaml:"binary_cooperation_prob,omitempty"`
	MinBurnIn          *int      `json:"min_burn_in,omitempty" yaml:"min_burn_in,omitempty"`
	MaxBurnIn          *int      `json:"max_burn_in,omitempty" yaml:"max_burn_in,omitempty"`

	// Feature exposure
	ObserveSpeed       *bool `json:"observe_speed,omitempty" yaml:"observe_speed,omitempty"`
	ObserveCooperation *bool `json:"observe_cooperation,omitempty" yaml:"observe_cooperation,omitempty"`

	// Background driver model
	IDMMinGap       *float64 `json:"idm_min_gap,omitempty" yaml:"idm_min_gap,omitempty"`
	IDMTimeHeadway  *float64 `json:"idm_time_headway,omitempty" yaml:"idm_time_headway,omitempty"`
	IDMMaxAccel     *float64 `json:"idm_max_accel,omitempty" yaml:"idm_max_accel,omitempty"`
	IDMComfortDecel *float64 `json:"idm_comfort_decel,omitempty" yaml:"idm_comfort_decel,omitempty"`
	IDMMaxDecel     *float64 `json:"idm_max_decel,omitempty" yaml:"idm_max_decel,omitempty"`
	MergeFOV        *float64 `json:"merge_fov,omitempty" yaml:"merge_fov,omitempty"`
	ActionNoise     *float64 `json:"action_noise,omitempty" yaml:"action_noise,omitempty"`
}

// Helper functions to create pointers
func PtrFloat64(v float64) *float64 { return &v }
func PtrInt(v int) *int             { return &v }
func PtrBool(v bool) *bool          { return &v }
func PtrString(v string) *string    { return &v }

// Default returns an empty configuration, so every accessor reports its default.
func Default() *EnvironmentConfig {
	return &EnvironmentConfig{}
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Load reads a configuration file. JSON (.json) and YAML (.yaml, .yml) are
// accepted; fields omitted from the file keep their defaults.
func Load(path string) (*EnvironmentConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, v...))
}

// Validate checks the resolved values. Car counts are checked when an initial
// state is drawn, since only the sampler knows how many cars it will place.
func (c *EnvironmentConfig) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"main_lane_length", c.GetMainLaneLength()},
		{"merge_lane_length", c.GetMergeLaneLength()},
		{"lane_width", c.GetLaneWidth()},
		{"vehicle_length", c.GetVehicleLength()},
		{"vehicle_width", c.GetVehicleWidth()},
		{"time_step", c.GetTimeStep()},
		{"main_lane_max_speed", c.GetMainLaneMaxSpeed()},
		{"desired_speed", c.GetDesiredSpeed()},
		{"idm_max_accel", c.GetIDMMaxAccel()},
		{"idm_comfort_decel", c.GetIDMComfortDecel()},
		{"idm_max_decel", c.GetIDMMaxDecel()},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return invalid("%s must be positive, got %v", f.name, f.v)
		}
	}
	if c.GetAfterMergeLength() < 0 {
		return invalid("after_merge_length must be non-negative, got %v", c.GetAfterMergeLength())
	}
	if a := c.GetMergeAngle(); a <= 0 || a >= math.Pi/2 {
		return invalid("merge_angle must be in (0, pi/2), got %v", a)
	}
	if n := len(c.GetJerkLevels()); n != 5 {
		return invalid("jerk_levels must have 5 entries, got %d", n)
	}
	if n := len(c.GetAccelLevels()); n != 6 {
		return invalid("accel_levels must have 6 entries, got %d", n)
	}
	if c.GetMaxAcceleration() <= 0 {
		return invalid("max_acceleration must be positive, got %v", c.GetMaxAcceleration())
	}
	if c.GetMaxDeceleration() >= 0 {
		return invalid("max_deceleration must be negative, got %v", c.GetMaxDeceleration())
	}
	if d := c.GetDiscount(); d < 0 || d > 1 {
		return invalid("discount must be between 0 and 1, got %v", d)
	}
	if c.GetInitialVelocity() < 0 || c.GetInitialEgoVelocity() < 0 {
		return invalid("velocities must be non-negative")
	}
	if c.GetInitialVelocityStd() < 0 {
		return invalid("initial_velocity_std must be non-negative, got %v", c.GetInitialVelocityStd())
	}
	switch c.GetTrafficSpeed() {
	case TrafficSpeedMixed:
		speeds, weights := c.GetMixedSpeeds(), c.GetMixedSpeedWeights()
		if len(speeds) == 0 || len(speeds) != len(weights) {
			return invalid("mixed_speeds and mixed_speed_weights must be non-empty and the same length")
		}
		for _, v := range speeds {
			if !(v > 0) {
				return invalid("mixed_speeds must be positive, got %v", v)
			}
		}
		total := 0.0
		for _, w := range weights {
			if w < 0 {
				return invalid("mixed_speed_weights must be non-negative")
			}
			total += w
		}
		if total == 0 {
			return invalid("mixed_speed_weights must not all be zero")
		}
	case TrafficSpeedFixed:
	default:
		return invalid("unknown traffic_speed %q", c.GetTrafficSpeed())
	}
	switch c.GetCooperationPolicy() {
	case CooperationUniform, CooperationBinary, CooperationFixed:
	default:
		return invalid("unknown cooperation_policy %q", c.GetCooperationPolicy())
	}
	if v := c.GetCooperation(); v < 0 || v > 1 {
		return invalid("cooperation must be between 0 and 1, got %v", v)
	}
	if p := c.GetBinaryCooperation(); p < 0 || p > 1 {
		return invalid("binary_cooperation_prob must be between 0 and 1, got %v", p)
	}
	if c.GetMinBurnIn() < 0 || c.GetMaxBurnIn() < c.GetMinBurnIn() {
		return invalid("burn-in range [%d, %d] is invalid", c.GetMinBurnIn(), c.GetMaxBurnIn())
	}
	if c.GetIDMMinGap() < 0 || c.GetIDMTimeHeadway() < 0 || c.GetMergeFOV() < 0 || c.GetActionNoise() < 0 {
		return invalid("idm_min_gap, idm_time_headway, merge_fov and action_noise must be non-negative")
	}
	return nil
}
