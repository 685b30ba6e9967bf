package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/cxd309/merge-engine/internal/driver"
	"github.com/cxd309/merge-engine/internal/features"
	"github.com/cxd309/merge-engine/internal/kinematics"
	"github.com/cxd309/merge-engine/internal/monitoring"
	"github.com/cxd309/merge-engine/internal/scene"
)

// NewRNG returns the random source used for a seeded episode.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Rollout draws an initial state from the input's seed and applies its
// actions in order, stopping early at a terminal state.
func Rollout(input RolloutInput) (RolloutLog, error) {
	env, err := New(input.Config)
	if err != nil {
		return RolloutLog{}, err
	}
	id := input.EpisodeID
	if id == "" {
		id = uuid.NewString()
	}

	rng := NewRNG(input.Seed)
	state, err := env.InitialState(rng)
	if err != nil {
		return RolloutLog{}, fmt.Errorf("initial state: %w", err)
	}

	codec := env.Codec()
	out := RolloutLog{EpisodeID: id, Seed: input.Seed, Discount: env.Discount()}
	out.Steps = append(out.Steps, env.logStep(codec, 0, 0, 0, state))

	weight := 1.0
	for i, action := range input.Actions {
		if env.IsTerminal(state) {
			break
		}
		next, err := env.Step(state, action, rng)
		if err != nil {
			return RolloutLog{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		r := env.Reward(state, action, next)
		out.Return += weight * r
		weight *= env.Discount()
		state = next
		out.Steps = append(out.Steps, env.logStep(codec, i+1, action, r, state))
	}
	monitoring.Debugf("episode %s: %d steps, return %.3f", id, len(out.Steps)-1, out.Return)
	return out, nil
}

func (e *Env) logStep(codec *features.Codec, step, action int, reward float64, state scene.AugmentedScene) StepLog {
	vehicles := make([]VehicleLog, len(state.Scene))
	for i, v := range state.Scene {
		pos, heading := e.road.Pose(v.Lane, v.S)
		vehicles[i] = VehicleLog{ID: v.ID, Lane: v.Lane, S: v.S, V: v.V, X: pos.X, Y: pos.Y, Heading: heading}
		if d, ok := e.models[v.ID].(*driver.CooperativeIDM); ok {
			c := d.Cooperation
			vehicles[i].Cooperation = &c
		}
	}
	f := codec.Normalize(codec.Extract(state, e.models))
	row := StepLog{
		Step:     step,
		Time:     float64(step) * e.params.TimeStep,
		Action:   action,
		Reward:   reward,
		Terminal: e.IsTerminal(state),
		EgoAcc:   state.Ego.Acc,
		Vehicles: vehicles,
		Features: f[:],
	}
	if ttc := e.egoTTC(state); !math.IsInf(ttc, 1) {
		row.TTC = &ttc
	}
	return row
}

// egoTTC is the time until the ego closes the bumper gap to its front
// neighbor at current speeds and commanded accelerations.
func (e *Env) egoTTC(state scene.AugmentedScene) float64 {
	front := scene.Front(e.road, state.Scene, scene.EgoID)
	if !front.Found {
		return math.Inf(1)
	}
	ego, _ := state.Scene.Ego()
	lead, _ := state.Scene.Get(front.ID)
	leadAcc := 0.0
	if d, ok := e.models[lead.ID].(*driver.CooperativeIDM); ok {
		leadAcc = d.Commanded()
	}
	gap := math.Max(0, front.Distance-(ego.Def.Length+lead.Def.Length)/2)
	return kinematics.TimeToCollision(gap, ego.V-lead.V, state.Ego.Acc-leadAcc)
}

// RunJSON is the entry point shared by the CLI and WASM targets. It accepts a
// JSON-encoded RolloutInput, runs the episode, and returns a JSON-encoded
// RolloutLog.
func RunJSON(jsonInput string) (string, error) {
	var input RolloutInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	log, err := Rollout(input)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(log)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
