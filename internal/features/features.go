// Package features converts between environment states and the fixed-length
// numeric vectors exchanged with planners and learners.
//
// The compact vector has 15 slots:
//
//	 0- 2  ego distance to merge point, ego speed, ego commanded acceleration
//	 3- 5  front neighbor          (headway, speed, cooperation)
//	 6- 8  main lane front neighbor (headway, speed, cooperation)
//	 9-11  main lane rear neighbor  (headway, speed, cooperation)
//	12-14  merge point rear neighbor (headway, speed, cooperation)
//
// An absent neighbor has headway Sentinel and zero speed and cooperation.
// Speed and cooperation are also zero when the codec does not expose them.
// The slot order and sentinels are part of the interchange format.
package features

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/cxd309/merge-engine/internal/driver"
	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

const (
	Size        = 15
	CompactSize = 11

	// Sentinel fills the headway slot of an absent neighbor.
	Sentinel = -3.0
	// GlobalCooperationSentinel replaces cooperation in the global vector
	// when cooperation is not exposed.
	GlobalCooperationSentinel = 0.5
)

// ErrVectorLength is returned when a vector does not have a valid length.
var ErrVectorLength = errors.New("feature vector has invalid length")

// Vector is the compact feature vector.
type Vector [Size]float64

// Codec holds the constants needed to extract, normalize and reconstruct
// feature vectors.
type Codec struct {
	Road *roadway.Roadway
	// Length scales every distance-like slot.
	Length float64
	// MaxSpeed scales every speed slot.
	MaxSpeed float64
	// MaxDecel is the magnitude of the strongest deceleration and scales the
	// ego acceleration slot.
	MaxDecel float64

	ObserveSpeed       bool
	ObserveCooperation bool

	// Def is the footprint given to reconstructed vehicles.
	Def scene.VehicleDef
}

// Extract builds the compact vector for state. models supplies the
// cooperation of neighbors; it may be nil when cooperation is not exposed.
func (c *Codec) Extract(state scene.AugmentedScene, models driver.Models) Vector {
	var f Vector
	for i := range f {
		f[i] = Sentinel
	}
	ego, ok := state.Scene.Ego()
	if !ok {
		return f
	}
	f[0] = c.Road.DistanceToMerge(ego.Lane, ego.S)
	f[1] = ego.V
	f[2] = state.Ego.Acc

	sc := state.Scene
	neighbors := [4]scene.Neighbor{
		scene.Front(c.Road, sc, scene.EgoID),
		scene.MainFront(c.Road, sc, scene.EgoID),
		scene.MainRear(c.Road, sc, scene.EgoID),
		scene.MergePointRear(c.Road, sc, scene.EgoID),
	}
	for k, n := range neighbors {
		i := 3 + 3*k
		f[i+1], f[i+2] = 0, 0
		if !n.Found {
			continue
		}
		f[i] = n.Distance
		e, _ := sc.Get(n.ID)
		if c.ObserveSpeed {
			f[i+1] = e.V
		}
		if c.ObserveCooperation {
			f[i+2] = cooperation(models, n.ID)
		}
	}
	return f
}

func cooperation(models driver.Models, id int) float64 {
	if d, ok := models[id].(*driver.CooperativeIDM); ok {
		return d.Cooperation
	}
	return 0
}

func (c *Codec) scale() Vector {
	l, v := c.Length, c.MaxSpeed
	return Vector{l, v, c.MaxDecel, l, v, 1, l, v, 1, l, v, 1, l, v, 1}
}

// Normalize rescales every slot into roughly unit range.
func (c *Codec) Normalize(f Vector) Vector {
	s := c.scale()
	floats.Div(f[:], s[:])
	return f
}

// Unnormalize inverts Normalize.
func (c *Codec) Unnormalize(f Vector) Vector {
	s := c.scale()
	floats.Mul(f[:], s[:])
	return f
}

// compactSlots are the slots of Vector kept by Compact.
var compactSlots = [CompactSize]int{0, 1, 2, 3, 4, 6, 7, 9, 10, 12, 13}

// Compact drops the cooperation slots, leaving the ego triple and the headway
// and speed of each neighbor.
func (f Vector) Compact() [CompactSize]float64 {
	var out [CompactSize]float64
	for i, slot := range compactSlots {
		out[i] = f[slot]
	}
	return out
}
