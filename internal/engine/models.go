package engine

import (
	"github.com/cxd309/merge-engine/internal/config"
	"github.com/cxd309/merge-engine/internal/roadway"
)

// RolloutInput is the JSON-serialisable request for a scripted episode.
type RolloutInput struct {
	EpisodeID string                    `json:"episode_id,omitempty"` // generated when empty
	Seed      uint64                    `json:"seed"`
	Config    *config.EnvironmentConfig `json:"config,omitempty"`
	Actions   []int                     `json:"actions"`
}

// VehicleLog is one vehicle at one step.
type VehicleLog struct {
	ID          int            `json:"id"`
	Lane        roadway.LaneID `json:"lane"`
	S           float64        `json:"s"`       // metres along the lane
	V           float64        `json:"v"`       // m/s
	X           float64        `json:"x"`       // world position, metres
	Y           float64        `json:"y"`       // world position, metres
	Heading     float64        `json:"heading"` // radians
	Cooperation *float64       `json:"cooperation,omitempty"`
}

// StepLog is the state reached after a step. Step 0 is the initial state and
// carries no action or reward.
type StepLog struct {
	Step     int          `json:"step"`
	Time     float64      `json:"time"` // seconds
	Action   int          `json:"action,omitempty"`
	Reward   float64      `json:"reward"`
	Terminal bool         `json:"terminal"`
	EgoAcc   float64      `json:"ego_acc"`
	Vehicles []VehicleLog `json:"vehicles"`
	Features []float64    `json:"features"`      // normalized compact vector
	TTC      *float64     `json:"ttc,omitempty"` // seconds to the front neighbor; absent when it never closes
}

// RolloutLog is the complete output of a scripted episode.
type RolloutLog struct {
	EpisodeID string    `json:"episode_id"`
	Seed      uint64    `json:"seed"`
	Discount  float64   `json:"discount"`
	Return    float64   `json:"return"` // discounted sum of rewards
	Steps     []StepLog `json:"steps"`
}
