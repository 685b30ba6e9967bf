// Package driver holds the per-vehicle controllers of the merging scene.
//
// A Driver observes the pre-step scene and then samples the acceleration it
// commands for the step. The environment owns one Driver per vehicle id in a
// Models map; that map is the only mutable state of an episode besides the
// scene itself.
package driver

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

// Driver is a longitudinal controller for one vehicle.
type Driver interface {
	// Observe reads sc from the point of view of vehicle id and updates the
	// driver's pending acceleration. It must not modify sc.
	Observe(sc scene.Scene, id int)
	// SampleAction returns the acceleration commanded for the current step.
	SampleAction(rng *rand.Rand) float64
	// Clone returns an independent copy.
	Clone() Driver
}

// Ego is the externally controlled driver. The policy writes Acc before each
// step; SampleAction hands it back unchanged.
type Ego struct {
	Acc float64
}

func (e *Ego) Observe(scene.Scene, int) {}

func (e *Ego) SampleAction(*rand.Rand) float64 { return e.Acc }

func (e *Ego) Clone() Driver { c := *e; return &c }

// Models maps vehicle ids to their drivers.
type Models map[int]Driver

// Clone deep-copies every driver so the copy can run a separate episode.
func (m Models) Clone() Models {
	return lo.MapValues(m, func(d Driver, _ int) Driver { return d.Clone() })
}

// Ego returns the ego driver, if present.
func (m Models) Ego() (*Ego, bool) {
	e, ok := m[scene.EgoID].(*Ego)
	return e, ok
}

// BroadcastOtherAcc publishes the ego's acceleration to every cooperative
// driver whose vehicle is on the main lane.
func (m Models) BroadcastOtherAcc(sc scene.Scene, acc float64) {
	for _, e := range sc {
		if e.IsEgo() || e.Lane != roadway.MainLane {
			continue
		}
		if c, ok := m[e.ID].(*CooperativeIDM); ok {
			c.OtherAcc = acc
		}
	}
}
