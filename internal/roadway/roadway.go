// Package roadway provides the on-ramp merge geometry: a straight main lane,
// a merge lane joining it at the merge point, and the arc-length frames used to
// place vehicles on either lane.
package roadway

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrUnknownLane is returned when a lane identifier is not part of the roadway.
var ErrUnknownLane = errors.New("unknown lane")

// LaneID identifies one of the two lanes.
type LaneID int

const (
	MainLane LaneID = iota
	MergeLane
)

func (id LaneID) String() string {
	switch id {
	case MainLane:
		return "main"
	case MergeLane:
		return "merge"
	default:
		return fmt.Sprintf("lane(%d)", int(id))
	}
}

// MarshalText encodes the lane as "main" or "merge".
func (id LaneID) MarshalText() ([]byte, error) {
	if id != MainLane && id != MergeLane {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLane, int(id))
	}
	return []byte(id.String()), nil
}

// UnmarshalText decodes "main" or "merge".
func (id *LaneID) UnmarshalText(b []byte) error {
	switch string(b) {
	case "main":
		*id = MainLane
	case "merge":
		*id = MergeLane
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLane, string(b))
	}
	return nil
}

// Layout is the serialisable description of the merge geometry. All lengths
// are metres, MergeAngle is in radians.
type Layout struct {
	MainLength       float64 `json:"main_length"`        // main lane start to merge point
	AfterMergeLength float64 `json:"after_merge_length"` // main lane beyond the merge point
	MergeLength      float64 `json:"merge_length"`
	LaneWidth        float64 `json:"lane_width"`
	MergeAngle       float64 `json:"merge_angle"`
}

// Lane is a straight directed lane centreline.
type Lane struct {
	ID     LaneID
	Start  r2.Vec
	End    r2.Vec
	Length float64
	Width  float64
	dir    r2.Vec // unit vector Start -> End
}

// Heading returns the lane heading in radians.
func (l Lane) Heading() float64 { return math.Atan2(l.dir.Y, l.dir.X) }

// Roadway is the immutable merge geometry. It is safe to share between
// environment copies.
type Roadway struct {
	main   Lane
	merge  Lane
	mergeS float64 // merge point along the main lane
}

// New builds a Roadway from a Layout. The main lane runs along the x axis from
// the origin; the merge lane approaches the merge point from below at
// MergeAngle.
func New(l Layout) (*Roadway, error) {
	if l.MainLength <= 0 || l.MergeLength <= 0 || l.LaneWidth <= 0 {
		return nil, fmt.Errorf("roadway lengths and lane width must be positive: %+v", l)
	}
	if l.AfterMergeLength < 0 {
		return nil, fmt.Errorf("after merge length must be non-negative, got %v", l.AfterMergeLength)
	}
	if l.MergeAngle <= 0 || l.MergeAngle >= math.Pi/2 {
		return nil, fmt.Errorf("merge angle must be in (0, pi/2), got %v", l.MergeAngle)
	}

	mergePoint := r2.Vec{X: l.MainLength}
	mergeDir := r2.Vec{X: math.Cos(l.MergeAngle), Y: math.Sin(l.MergeAngle)}

	r := &Roadway{
		main: Lane{
			ID:     MainLane,
			Start:  r2.Vec{},
			End:    r2.Vec{X: l.MainLength + l.AfterMergeLength},
			Length: l.MainLength + l.AfterMergeLength,
			Width:  l.LaneWidth,
			dir:    r2.Vec{X: 1},
		},
		merge: Lane{
			ID:     MergeLane,
			Start:  r2.Sub(mergePoint, r2.Scale(l.MergeLength, mergeDir)),
			End:    mergePoint,
			Length: l.MergeLength,
			Width:  l.LaneWidth,
			dir:    mergeDir,
		},
		mergeS: l.MainLength,
	}
	return r, nil
}

// Lane looks up a lane by ID.
func (r *Roadway) Lane(id LaneID) (Lane, error) {
	switch id {
	case MainLane:
		return r.main, nil
	case MergeLane:
		return r.merge, nil
	}
	return Lane{}, fmt.Errorf("%w: %d", ErrUnknownLane, int(id))
}

// lane resolves id, treating anything but MergeLane as the main lane.
func (r *Roadway) lane(id LaneID) *Lane {
	if id == MergeLane {
		return &r.merge
	}
	return &r.main
}

// LaneEnd returns the arc-length position of the end of lane id.
func (r *Roadway) LaneEnd(id LaneID) float64 { return r.lane(id).Length }

// MergePosition returns the arc-length position of the merge point on the main lane.
func (r *Roadway) MergePosition() float64 { return r.mergeS }

// MergePoint returns the merge point in world coordinates.
func (r *Roadway) MergePoint() r2.Vec { return r.merge.End }

// Pose returns the world position and heading of arc-length s on lane id.
// Positions outside [0, LaneEnd] extrapolate along the lane direction.
func (r *Roadway) Pose(id LaneID, s float64) (r2.Vec, float64) {
	l := r.lane(id)
	return r2.Add(l.Start, r2.Scale(s, l.dir)), l.Heading()
}

// Advance moves arc-length s on lane id forward by ds. Travel past the end of
// the merge lane continues on the main lane beyond the merge point; travel past
// the end of the main lane extrapolates.
func (r *Roadway) Advance(id LaneID, s, ds float64) (LaneID, float64) {
	s += ds
	if id == MergeLane && s > r.merge.Length {
		return MainLane, r.mergeS + (s - r.merge.Length)
	}
	if id != MergeLane {
		id = MainLane
	}
	return id, s
}

// DistanceToMerge returns the signed distance from arc-length s on lane id to
// the merge point: negative while approaching on the merge lane, positive once
// past the merge point on the main lane.
func (r *Roadway) DistanceToMerge(id LaneID, s float64) float64 {
	if id == MergeLane {
		return s - r.merge.Length
	}
	return s - r.mergeS
}

// ProjectToMain maps arc-length s on lane id to the main lane frame, treating
// a merge lane position as if already merged.
func (r *Roadway) ProjectToMain(id LaneID, s float64) float64 {
	return r.mergeS + r.DistanceToMerge(id, s)
}

// FromMergeDistance is the inverse of DistanceToMerge: negative distances land
// on the merge lane, the rest on the main lane.
func (r *Roadway) FromMergeDistance(d float64) (LaneID, float64) {
	if d < 0 {
		return MergeLane, r.merge.Length + d
	}
	return MainLane, r.mergeS + d
}

// Project finds the lane point nearest to p. It returns that lane, the
// arc-length of the foot point clamped to the lane, and the signed lateral
// offset of p (positive to the left of the lane direction). Ties go to the
// main lane.
func (r *Roadway) Project(p r2.Vec) (LaneID, float64, float64) {
	var (
		bestID         LaneID
		bestS, bestT float64
		bestD        = math.Inf(1)
	)
	for _, l := range [...]*Lane{&r.main, &r.merge} {
		rel := r2.Sub(p, l.Start)
		s := math.Max(0, math.Min(l.Length, r2.Dot(rel, l.dir)))
		foot := r2.Add(l.Start, r2.Scale(s, l.dir))
		if d := r2.Norm(r2.Sub(p, foot)); d < bestD {
			bestID, bestS, bestT, bestD = l.ID, s, r2.Cross(l.dir, rel), d
		}
	}
	return bestID, bestS, bestT
}
