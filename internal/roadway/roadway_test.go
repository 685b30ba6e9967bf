package roadway

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func testLayout() Layout {
	return Layout{MainLength: 100, AfterMergeLength: 50, MergeLength: 40, LaneWidth: 3, MergeAngle: math.Pi / 6}
}

func newTestRoadway(t *testing.T) *Roadway {
	t.Helper()
	r, err := New(testLayout())
	require.NoError(t, err)
	return r
}

func TestNewRejectsBadLayout(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layout)
	}{
		{"zero main", func(l *Layout) { l.MainLength = 0 }},
		{"zero merge", func(l *Layout) { l.MergeLength = 0 }},
		{"negative after merge", func(l *Layout) { l.AfterMergeLength = -1 }},
		{"right angle", func(l *Layout) { l.MergeAngle = math.Pi / 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLayout()
			tt.mutate(&l)
			_, err := New(l)
			assert.Error(t, err)
		})
	}
}

func TestLaneGeometry(t *testing.T) {
	r := newTestRoadway(t)

	assert.Equal(t, 150.0, r.LaneEnd(MainLane))
	assert.Equal(t, 40.0, r.LaneEnd(MergeLane))
	assert.Equal(t, 100.0, r.MergePosition())

	merge, err := r.Lane(MergeLane)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, merge.End.X, 1e-9)
	assert.InDelta(t, 0.0, merge.End.Y, 1e-9)
	assert.InDelta(t, math.Pi/6, merge.Heading(), 1e-12)

	_, err = r.Lane(LaneID(7))
	assert.ErrorIs(t, err, ErrUnknownLane)
}

func TestPose(t *testing.T) {
	r := newTestRoadway(t)

	p, h := r.Pose(MainLane, 30)
	assert.InDelta(t, 30.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
	assert.Equal(t, 0.0, h)

	p, _ = r.Pose(MergeLane, 40)
	assert.InDelta(t, r.MergePoint().X, p.X, 1e-9)
	assert.InDelta(t, r.MergePoint().Y, p.Y, 1e-9)

	p, _ = r.Pose(MergeLane, 0)
	assert.InDelta(t, 100-40*math.Cos(math.Pi/6), p.X, 1e-9)
	assert.InDelta(t, -40*math.Sin(math.Pi/6), p.Y, 1e-9)
}

func TestAdvance(t *testing.T) {
	r := newTestRoadway(t)

	tests := []struct {
		name     string
		lane     LaneID
		s, ds    float64
		wantLane LaneID
		wantS    float64
	}{
		{"main stays main", MainLane, 10, 5, MainLane, 15},
		{"main extrapolates past end", MainLane, 148, 5, MainLane, 153},
		{"merge stays merge", MergeLane, 10, 5, MergeLane, 15},
		{"merge exactly at end", MergeLane, 35, 5, MergeLane, 40},
		{"merge crosses onto main", MergeLane, 38, 5, MainLane, 103},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lane, s := r.Advance(tt.lane, tt.s, tt.ds)
			assert.Equal(t, tt.wantLane, lane)
			assert.InDelta(t, tt.wantS, s, 1e-9)
		})
	}
}

func TestMergeDistanceFrames(t *testing.T) {
	r := newTestRoadway(t)

	assert.Equal(t, -30.0, r.DistanceToMerge(MergeLane, 10))
	assert.Equal(t, 20.0, r.DistanceToMerge(MainLane, 120))
	assert.Equal(t, 70.0, r.ProjectToMain(MergeLane, 10))
	assert.Equal(t, 120.0, r.ProjectToMain(MainLane, 120))

	for _, d := range []float64{-30, -0.5, 0, 12} {
		lane, s := r.FromMergeDistance(d)
		assert.InDelta(t, d, r.DistanceToMerge(lane, s), 1e-12)
	}
}

func TestLaneIDText(t *testing.T) {
	b, err := json.Marshal(map[string]LaneID{"lane": MergeLane})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lane":"merge"}`, string(b))

	var got struct{ Lane LaneID }
	require.NoError(t, json.Unmarshal([]byte(`{"Lane":"main"}`), &got))
	assert.Equal(t, MainLane, got.Lane)

	assert.Error(t, json.Unmarshal([]byte(`{"Lane":"shoulder"}`), &got))
}

func TestProject(t *testing.T) {
	r := newTestRoadway(t)
	onMerge, _ := r.Pose(MergeLane, 20)

	tests := []struct {
		name  string
		p     r2.Vec
		lane  LaneID
		s, tt float64
	}{
		{"left of main", r2.Vec{X: 30, Y: 1}, MainLane, 30, 1},
		{"right of main past merge", r2.Vec{X: 120, Y: -2}, MainLane, 120, -2},
		{"on merge lane", onMerge, MergeLane, 20, 0},
		{"merge point prefers main", r.MergePoint(), MainLane, 100, 0},
		{"before main start clamps", r2.Vec{X: -5}, MainLane, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lane, s, off := r.Project(tc.p)
			assert.Equal(t, tc.lane, lane)
			assert.InDelta(t, tc.s, s, 1e-9)
			assert.InDelta(t, tc.tt, off, 1e-9)
		})
	}
}
