// Package scene defines the vehicles of a merging scene and the operations that
// read or advance them: kinematic propagation, wrap-around, and lane-aware
// neighbor queries.
//
// Entities are values. Every operation returns new entities and never mutates
// its input, so a scene can be shared read-only between all drivers observing
// it during one synchronous step.
package scene

import (
	"errors"
	"fmt"

	"github.com/cxd309/merge-engine/internal/roadway"
)

// EgoID is the reserved identifier of the controlled vehicle.
const EgoID = 1

// ErrInvalidScene is wrapped by Validate failures.
var ErrInvalidScene = errors.New("invalid scene")

// VehicleDef is the fixed footprint of a vehicle, in metres.
type VehicleDef struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// Entity is one vehicle. S is the arc-length position of the vehicle centre on
// Lane and V its speed.
type Entity struct {
	ID   int            `json:"id"`
	Lane roadway.LaneID `json:"lane"`
	S    float64        `json:"s"`
	V    float64        `json:"v"`
	Def  VehicleDef     `json:"def"`
}

// IsEgo reports whether e is the controlled vehicle.
func (e Entity) IsEgo() bool { return e.ID == EgoID }

// Scene is an ordered set of entities. By convention the ego comes first.
type Scene []Entity

// Index returns the position of id in the scene.
func (s Scene) Index(id int) (int, bool) {
	for i, e := range s {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Get returns the entity with the given id.
func (s Scene) Get(id int) (Entity, bool) {
	if i, ok := s.Index(id); ok {
		return s[i], true
	}
	return Entity{}, false
}

// Ego returns the controlled vehicle.
func (s Scene) Ego() (Entity, bool) { return s.Get(EgoID) }

// Clone returns a copy that shares no backing storage with s.
func (s Scene) Clone() Scene {
	if s == nil {
		return nil
	}
	return append(Scene(nil), s...)
}

// Validate checks that ids are unique and exactly one entity is the ego.
func (s Scene) Validate() error {
	seen := make(map[int]struct{}, len(s))
	egos := 0
	for _, e := range s {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidScene, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.IsEgo() {
			egos++
		}
	}
	if egos != 1 {
		return fmt.Errorf("%w: want exactly one ego, got %d", ErrInvalidScene, egos)
	}
	return nil
}

// EgoInfo carries the last acceleration commanded to the ego. The discrete
// action space is jerk-relative, so this cannot be recovered from the scene.
type EgoInfo struct {
	Acc float64 `json:"acc"`
}

// AugmentedScene is the full environment state: a scene plus the ego's
// commanded acceleration.
type AugmentedScene struct {
	Scene Scene   `json:"scene"`
	Ego   EgoInfo `json:"ego_info"`
}
