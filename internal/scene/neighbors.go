package scene

import (
	"math"

	"github.com/cxd309/merge-engine/internal/roadway"
)

// Neighbor is the answer to a neighbor query. Found is false when no vehicle
// qualifies, which is distinct from a neighbor at Distance 0.
type Neighbor struct {
	ID       int
	Distance float64 // centre to centre, along the main lane frame, always >= 0
	Found    bool
}

// NoNeighbor is returned when no vehicle qualifies.
var NoNeighbor = Neighbor{ID: -1, Distance: math.Inf(1)}

type direction int

const (
	ahead direction = iota
	behind
)

// nearest scans sc for the closest candidate in dir relative to ref, measured
// in the main lane frame. A vehicle level with ref counts as ahead.
func nearest(road *roadway.Roadway, sc Scene, exclude int, ref float64, dir direction, keep func(Entity) bool) Neighbor {
	best := NoNeighbor
	for _, e := range sc {
		if e.ID == exclude || !keep(e) {
			continue
		}
		delta := road.ProjectToMain(e.Lane, e.S) - ref
		if dir == behind {
			delta = -delta
			if delta <= 0 {
				continue
			}
		} else if delta < 0 {
			continue
		}
		if delta < best.Distance {
			best = Neighbor{ID: e.ID, Distance: delta, Found: true}
		}
	}
	return best
}

func onMain(e Entity) bool { return e.Lane == roadway.MainLane }
func anyLane(Entity) bool  { return true }

// sameLane picks the candidate filter for own-lane queries: a main lane subject
// sees only main lane traffic, a merge lane subject sees both lanes as if it
// had already merged.
func sameLane(subject Entity) func(Entity) bool {
	if subject.Lane == roadway.MergeLane {
		return anyLane
	}
	return onMain
}

func query(road *roadway.Roadway, sc Scene, id int, dir direction, mainOnly bool) Neighbor {
	subject, ok := sc.Get(id)
	if !ok {
		return NoNeighbor
	}
	keep := sameLane(subject)
	if mainOnly {
		keep = onMain
	}
	return nearest(road, sc, id, road.ProjectToMain(subject.Lane, subject.S), dir, keep)
}

// Front returns the nearest vehicle ahead of id in its own lane, projected
// through the merge point when id is on the merge lane.
func Front(road *roadway.Roadway, sc Scene, id int) Neighbor {
	return query(road, sc, id, ahead, false)
}

// Rear returns the nearest vehicle behind id under the same projection as Front.
func Rear(road *roadway.Roadway, sc Scene, id int) Neighbor {
	return query(road, sc, id, behind, false)
}

// MainFront returns the nearest main lane vehicle ahead of id's projected
// position, whatever lane id is on.
func MainFront(road *roadway.Roadway, sc Scene, id int) Neighbor {
	return query(road, sc, id, ahead, true)
}

// MainRear returns the nearest main lane vehicle behind id's projected position.
func MainRear(road *roadway.Roadway, sc Scene, id int) Neighbor {
	return query(road, sc, id, behind, true)
}

// MergePointRear returns the main lane vehicle nearest to the merge point from
// behind (at or before it), excluding id. Distance is measured back from the
// merge point.
func MergePointRear(road *roadway.Roadway, sc Scene, exclude int) Neighbor {
	best := NoNeighbor
	m := road.MergePosition()
	for _, e := range sc {
		if e.ID == exclude || !onMain(e) || e.S > m {
			continue
		}
		if d := m - e.S; d < best.Distance {
			best = Neighbor{ID: e.ID, Distance: d, Found: true}
		}
	}
	return best
}
