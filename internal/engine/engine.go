// Package engine implements the on-ramp merging environment.
//
// The environment is a generative model: it samples initial traffic scenes,
// draws one stochastic transition at a time, and scores transitions. Each
// transition has two passes over the pre-step scene:
//
//  1. Decision pass - every driver observes the pre-step scene and samples
//     its acceleration. No driver sees another's update from the same step.
//
//  2. Motion pass - every vehicle is propagated under its sampled
//     acceleration, then background vehicles at the end of the main lane
//     wrap around to its start.
//
// Randomness always comes from the *rand.Rand passed in. An Env owns the
// driver map of exactly one episode; use Clone to run episodes in parallel.
package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/cxd309/merge-engine/internal/config"
	"github.com/cxd309/merge-engine/internal/driver"
	"github.com/cxd309/merge-engine/internal/features"
	"github.com/cxd309/merge-engine/internal/footprint"
	"github.com/cxd309/merge-engine/internal/monitoring"
	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

var (
	// ErrNoCars is returned when an initial state is requested with a
	// non-positive number of background vehicles.
	ErrNoCars = errors.New("background vehicle count must be positive")
	// ErrTooManyCars is returned when more background vehicles are requested
	// than there are distinct start slots.
	ErrTooManyCars = errors.New("more background vehicles than start slots")
	// ErrInvalidAction is returned for action indices outside Actions().
	ErrInvalidAction = errors.New("invalid action")
	// ErrMissingDriver is returned when a vehicle in the scene has no driver.
	ErrMissingDriver = errors.New("vehicle has no driver")
)

// Discrete actions. Actions 2 to 6 add the matching jerk level to the
// previously commanded acceleration.
const (
	ActionHardBrake = 1
	ActionRelease   = 7
)

// Env is the merging environment.
type Env struct {
	params Params
	road   *roadway.Roadway
	models driver.Models
}

// New builds an environment from cfg. A nil cfg uses the defaults.
func New(cfg *config.EnvironmentConfig) (*Env, error) {
	p, err := ParamsFrom(cfg)
	if err != nil {
		return nil, err
	}
	return NewFromParams(p)
}

// NewFromParams builds an environment from resolved parameters. Invalid
// parameters fail with an error wrapping config.ErrInvalid.
func NewFromParams(p Params) (*Env, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("environment params: %w", err)
	}
	road, err := roadway.New(p.Layout)
	if err != nil {
		return nil, fmt.Errorf("building roadway: %w", err)
	}
	return &Env{
		params: p.Clone(),
		road:   road,
		models: driver.Models{scene.EgoID: &driver.Ego{}},
	}, nil
}

// Clone returns an environment with its own copy of the parameters and the
// driver map. The roadway is immutable and shared.
func (e *Env) Clone() *Env {
	return &Env{
		params: e.params.Clone(),
		road:   e.road,
		models: e.models.Clone(),
	}
}

// Params returns a copy of the environment parameters.
func (e *Env) Params() Params { return e.params.Clone() }

// Road returns the roadway.
func (e *Env) Road() *roadway.Roadway { return e.road }

// Models returns the live driver map of the current episode.
func (e *Env) Models() driver.Models { return e.models }

// Actions returns the discrete action space, 1 to 7.
func (e *Env) Actions() []int {
	return lo.RangeFrom(ActionHardBrake, ActionRelease-ActionHardBrake+1)
}

// Discount returns the discount factor episode runners should apply.
func (e *Env) Discount() float64 { return e.params.Discount }

// Codec returns a feature codec configured for this environment.
func (e *Env) Codec() *features.Codec {
	return &features.Codec{
		Road:               e.road,
		Length:             e.params.Layout.MainLength,
		MaxSpeed:           e.params.MaxSpeed,
		MaxDecel:           e.params.maxDecelMagnitude(),
		ObserveSpeed:       e.params.ObserveSpeed,
		ObserveCooperation: e.params.ObserveCooperation,
		Def:                e.params.Vehicle,
	}
}

// DecodeAction maps a discrete action to the acceleration commanded to the
// ego. Jerk actions are applied to prev, the previously commanded (not
// measured) acceleration.
func (e *Env) DecodeAction(prev float64, action int) (float64, error) {
	p := e.params
	switch {
	case action == ActionHardBrake:
		return p.MaxDeceleration, nil
	case action == ActionRelease:
		return 0, nil
	case action > ActionHardBrake && action < ActionRelease:
		return lo.Clamp(prev+p.JerkLevels[action-2], p.MaxDeceleration, p.MaxAcceleration), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidAction, action)
}

// InitialState samples an initial state. Background vehicles are placed on
// distinct start slots along the main lane, given drivers, and simulated
// without the ego for a random burn-in. The ego then enters at the start of
// the merge lane. The driver map is rebuilt from scratch.
func (e *Env) InitialState(rng *rand.Rand) (scene.AugmentedScene, error) {
	p := e.params

	n := p.NCars
	if p.RandomNCars {
		if p.MaxCars < p.MinCars {
			return scene.AugmentedScene{}, fmt.Errorf("%w: min_cars %d exceeds max_cars %d", ErrNoCars, p.MinCars, p.MaxCars)
		}
		n = p.MinCars + rng.IntN(p.MaxCars-p.MinCars+1)
	}
	if n <= 0 {
		return scene.AugmentedScene{}, fmt.Errorf("%w: got %d", ErrNoCars, n)
	}
	if n > p.MaxCars {
		return scene.AugmentedScene{}, fmt.Errorf("%w: %d vehicles, %d slots", ErrTooManyCars, n, p.MaxCars)
	}

	e.models = driver.Models{scene.EgoID: &driver.Ego{}}

	slots := make([]int, n)
	sampleuv.WithoutReplacement(slots, p.MaxCars, rng)
	spacing := e.road.LaneEnd(roadway.MainLane) / float64(p.MaxCars)

	// One speed per vehicle including the ego. The ego's draw is discarded
	// and it starts at InitialEgoVelocity.
	speed := distuv.Normal{Mu: p.InitialVelocity, Sigma: p.InitialVelocityStd, Src: rng}
	speeds := make([]float64, n+1)
	for i := range speeds {
		speeds[i] = math.Max(0, speed.Rand())
	}

	sc := make(scene.Scene, 0, n+1)
	for i, slot := range slots {
		id := i + 2
		sc = append(sc, scene.Entity{
			ID:   id,
			Lane: roadway.MainLane,
			S:    float64(slot) * spacing,
			V:    speeds[i+1],
			Def:  p.Vehicle,
		})
		e.models[id] = e.newBackgroundDriver(rng)
	}

	burnIn := p.MinBurnIn + rng.IntN(p.MaxBurnIn-p.MinBurnIn+1)
	for k := 0; k < burnIn; k++ {
		next, err := e.advance(sc, rng)
		if err != nil {
			return scene.AugmentedScene{}, fmt.Errorf("burn-in step %d: %w", k, err)
		}
		sc = next
	}
	monitoring.Debugf("initial state: %d background vehicles, %d burn-in steps", n, burnIn)

	ego := scene.Entity{
		ID:   scene.EgoID,
		Lane: roadway.MergeLane,
		S:    0,
		V:    p.InitialEgoVelocity,
		Def:  p.Vehicle,
	}
	return scene.AugmentedScene{
		Scene: slices.Insert(sc, 0, ego),
		Ego:   scene.EgoInfo{Acc: 0},
	}, nil
}

// newBackgroundDriver draws a cooperative driver's desired speed and
// cooperation from the configured policies.
func (e *Env) newBackgroundDriver(rng *rand.Rand) *driver.CooperativeIDM {
	p := e.params

	idm := p.IDM
	switch p.TrafficSpeed {
	case config.TrafficSpeedMixed:
		idx := distuv.NewCategorical(p.MixedSpeedWeights, rng).Rand()
		idm.DesiredSpeed = p.MixedSpeeds[int(idx)]
	default:
		idm.DesiredSpeed = p.DesiredSpeed
	}

	var coop float64
	switch p.CooperationPolicy {
	case config.CooperationUniform:
		coop = float64(rng.IntN(101)) / 100
	case config.CooperationBinary:
		coop = distuv.Bernoulli{P: p.BinaryCooperation, Src: rng}.Rand()
	default:
		coop = p.Cooperation
	}

	return &driver.CooperativeIDM{
		Road:        e.road,
		IDM:         idm,
		Cooperation: coop,
		FOV:         p.MergeFOV,
		Noise:       p.ActionNoise,
	}
}

// Step draws the successor of state under action.
func (e *Env) Step(state scene.AugmentedScene, action int, rng *rand.Rand) (scene.AugmentedScene, error) {
	egoAcc, err := e.DecodeAction(state.Ego.Acc, action)
	if err != nil {
		return scene.AugmentedScene{}, err
	}
	ego, ok := e.models.Ego()
	if !ok {
		return scene.AugmentedScene{}, fmt.Errorf("%w: ego", ErrMissingDriver)
	}

	// Background drivers react to the ego with a one step lag: they see the
	// acceleration it commanded in the previous step.
	e.models.BroadcastOtherAcc(state.Scene, state.Ego.Acc)
	ego.Acc = egoAcc

	next, err := e.advance(state.Scene, rng)
	if err != nil {
		return scene.AugmentedScene{}, err
	}
	return scene.AugmentedScene{Scene: next, Ego: scene.EgoInfo{Acc: egoAcc}}, nil
}

// advance runs one synchronous update of every vehicle in sc.
func (e *Env) advance(sc scene.Scene, rng *rand.Rand) (scene.Scene, error) {
	// Pass 1: every driver decides against the same pre-step scene.
	accs := make([]float64, len(sc))
	for i, v := range sc {
		d, ok := e.models[v.ID]
		if !ok {
			return nil, fmt.Errorf("%w: vehicle %d", ErrMissingDriver, v.ID)
		}
		d.Observe(sc, v.ID)
		accs[i] = d.SampleAction(rng)
	}

	// Pass 2: move everyone.
	next := make(scene.Scene, len(sc))
	for i, v := range sc {
		moved := scene.Propagate(e.road, v, accs[i], e.params.TimeStep, true)
		next[i] = scene.WrapAround(e.road, moved)
	}
	return next, nil
}

// Reward scores the transition from state to next. Reaching the goal and
// colliding are exclusive; the hard brake cost is added on top of either.
func (e *Env) Reward(state scene.AugmentedScene, action int, next scene.AugmentedScene) float64 {
	var r float64
	switch {
	case e.reachedGoal(next.Scene):
		r += e.params.GoalReward
	case footprint.Collides(e.road, next.Scene, scene.EgoID):
		r += e.params.CollisionCost
	}
	if e.causedHardBrake(next.Scene) {
		r += e.params.HardBrakeCost
	}
	return r
}

// IsTerminal reports whether the ego has collided or reached the goal in
// state. A state without an ego is terminal.
func (e *Env) IsTerminal(state scene.AugmentedScene) bool {
	if _, ok := state.Scene.Ego(); !ok {
		return true
	}
	return e.reachedGoal(state.Scene) || footprint.Collides(e.road, state.Scene, scene.EgoID)
}

func (e *Env) reachedGoal(sc scene.Scene) bool {
	ego, ok := sc.Ego()
	return ok && ego.Lane == roadway.MainLane && ego.S >= e.road.LaneEnd(roadway.MainLane)
}

// causedHardBrake reports whether the main lane vehicle directly behind the
// ego commanded at least its comfortable deceleration in the last step.
func (e *Env) causedHardBrake(sc scene.Scene) bool {
	rear := scene.MainRear(e.road, sc, scene.EgoID)
	if !rear.Found {
		return false
	}
	d, ok := e.models[rear.ID].(*driver.CooperativeIDM)
	return ok && d.Commanded() <= d.ComfortDecelThreshold()
}
