// Package footprint answers whether vehicle footprints overlap. Footprints are
// oriented rectangles placed in world coordinates by the roadway.
package footprint

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

// Rect is an oriented rectangle. Heading is the direction of its length axis.
type Rect struct {
	Center  r2.Vec
	Heading float64
	Length  float64
	Width   float64
}

// axes returns the unit length and width axes.
func (r Rect) axes() (r2.Vec, r2.Vec) {
	sin, cos := math.Sincos(r.Heading)
	return r2.Vec{X: cos, Y: sin}, r2.Vec{X: -sin, Y: cos}
}

// Corners returns the four corners, counter-clockwise from front-left.
func (r Rect) Corners() [4]r2.Vec {
	u, w := r.axes()
	hl := r2.Scale(r.Length/2, u)
	hw := r2.Scale(r.Width/2, w)
	return [4]r2.Vec{
		r2.Add(r.Center, r2.Add(hl, hw)),
		r2.Add(r.Center, r2.Sub(hw, hl)),
		r2.Sub(r.Center, r2.Add(hl, hw)),
		r2.Add(r.Center, r2.Sub(hl, hw)),
	}
}

// Overlaps reports whether a and b share interior area. Rectangles that only
// touch along an edge do not overlap.
func Overlaps(a, b Rect) bool {
	ca, cb := a.Corners(), b.Corners()
	au, aw := a.axes()
	bu, bw := b.axes()
	for _, axis := range [4]r2.Vec{au, aw, bu, bw} {
		minA, maxA := project(ca, axis)
		minB, maxB := project(cb, axis)
		if maxA <= minB+eps || maxB <= minA+eps {
			return false
		}
	}
	return true
}

const eps = 1e-9

func project(corners [4]r2.Vec, axis r2.Vec) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, c := range corners {
		p := r2.Dot(c, axis)
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	return lo, hi
}

// Of places e's footprint on the road.
func Of(road *roadway.Roadway, e scene.Entity) Rect {
	pos, heading := road.Pose(e.Lane, e.S)
	return Rect{Center: pos, Heading: heading, Length: e.Def.Length, Width: e.Def.Width}
}

// Collides reports whether the vehicle id overlaps any other vehicle in sc.
// An id missing from sc never collides.
func Collides(road *roadway.Roadway, sc scene.Scene, id int) bool {
	subject, ok := sc.Get(id)
	if !ok {
		return false
	}
	r := Of(road, subject)
	for _, e := range sc {
		if e.ID != id && Overlaps(r, Of(road, e)) {
			return true
		}
	}
	return false
}
