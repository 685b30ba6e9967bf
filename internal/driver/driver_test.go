package driver

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

var car = scene.VehicleDef{Length: 4, Width: 1.8}

func newTestRoadway(t *testing.T) *roadway.Roadway {
	t.Helper()
	r, err := roadway.New(roadway.Layout{
		MainLength:       100,
		AfterMergeLength: 50,
		MergeLength:      50,
		LaneWidth:        3,
		MergeAngle:       math.Pi / 6,
	})
	require.NoError(t, err)
	return r
}

func testIDM() IDM {
	return IDM{DesiredSpeed: 10, MinGap: 2, TimeHeadway: 1.5, MaxAccel: 2, ComfortDecel: 2, MaxDecel: 9}
}

func TestEgoReturnsHeldAcceleration(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	e := &Ego{Acc: -1.5}
	e.Observe(nil, scene.EgoID)
	assert.Equal(t, -1.5, e.SampleAction(rng))

	cp := e.Clone().(*Ego)
	cp.Acc = 2
	assert.Equal(t, -1.5, e.Acc)
}

func TestIDMAccel(t *testing.T) {
	m := testIDM()

	t.Run("free road from rest", func(t *testing.T) {
		assert.InDelta(t, 2.0, m.Accel(0, 0, 0, false), 1e-12)
	})
	t.Run("free road at desired speed", func(t *testing.T) {
		assert.InDelta(t, 0.0, m.Accel(10, 0, 0, false), 1e-12)
	})
	t.Run("large gap behaves like free road", func(t *testing.T) {
		assert.InDelta(t, m.Accel(5, 5, 0, false), m.Accel(5, 5, 1e6, true), 1e-6)
	})
	t.Run("closing fast brakes", func(t *testing.T) {
		assert.Less(t, m.Accel(10, 0, 10, true), -2.0)
	})
	t.Run("overlap is maximum braking", func(t *testing.T) {
		assert.Equal(t, -9.0, m.Accel(5, 5, 0, true))
		assert.Equal(t, -9.0, m.Accel(5, 5, -1, true))
	})
	t.Run("clamped at max decel", func(t *testing.T) {
		assert.Equal(t, -9.0, m.Accel(15, 0, 0.5, true))
	})
}

func TestCooperativeFollowsFront(t *testing.T) {
	road := newTestRoadway(t)
	sc := scene.Scene{
		{ID: 2, Lane: roadway.MainLane, S: 20, V: 5, Def: car},
		{ID: 3, Lane: roadway.MainLane, S: 34, V: 5, Def: car},
	}
	c := &CooperativeIDM{Road: road, IDM: testIDM()}
	c.Observe(sc, 2)

	want := testIDM().Accel(5, 5, 10, true)
	assert.InDelta(t, want, c.SampleAction(rand.New(rand.NewPCG(1, 1))), 1e-12)
	assert.InDelta(t, want, c.Commanded(), 1e-12)
}

func TestCooperativeYieldsToMerger(t *testing.T) {
	road := newTestRoadway(t)
	// vehicle 2 is 20 m before the merge point; the ego is 5 m from it on
	// the merge lane and will get there first
	sc := scene.Scene{
		{ID: scene.EgoID, Lane: roadway.MergeLane, S: 45, V: 5, Def: car},
		{ID: 2, Lane: roadway.MainLane, S: 80, V: 8, Def: car},
	}
	rng := rand.New(rand.NewPCG(1, 1))

	free := testIDM().Accel(8, 0, 0, false)
	follow := testIDM().Accel(8, 5, 95-80-4, true)
	require.Less(t, follow, free)

	tests := []struct {
		name        string
		cooperation float64
		want        float64
	}{
		{"selfish ignores merger", 0, free},
		{"fully cooperative follows merger", 1, follow},
		{"half cooperative blends", 0.5, (free + follow) / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &CooperativeIDM{Road: road, IDM: testIDM(), Cooperation: tt.cooperation, FOV: 20}
			c.Observe(sc, 2)
			assert.InDelta(t, tt.want, c.SampleAction(rng), 1e-12)
		})
	}
}

func TestCooperativeIgnoresMergerOutsideView(t *testing.T) {
	road := newTestRoadway(t)
	sc := scene.Scene{
		{ID: scene.EgoID, Lane: roadway.MergeLane, S: 10, V: 5, Def: car}, // 40 m out
		{ID: 2, Lane: roadway.MainLane, S: 80, V: 8, Def: car},
	}
	c := &CooperativeIDM{Road: road, IDM: testIDM(), Cooperation: 1, FOV: 20}
	c.Observe(sc, 2)
	assert.InDelta(t, testIDM().Accel(8, 0, 0, false), c.SampleAction(nil), 1e-12)
}

func TestCooperativeIgnoresMergerAfterPassingMergePoint(t *testing.T) {
	road := newTestRoadway(t)
	sc := scene.Scene{
		{ID: scene.EgoID, Lane: roadway.MergeLane, S: 45, V: 5, Def: car},
		{ID: 2, Lane: roadway.MainLane, S: 101, V: 8, Def: car},
	}
	c := &CooperativeIDM{Road: road, IDM: testIDM(), Cooperation: 1, FOV: 20}
	c.Observe(sc, 2)
	assert.InDelta(t, testIDM().Accel(8, 0, 0, false), c.SampleAction(nil), 1e-12)
}

func TestCooperativeUsesBroadcastEgoAcceleration(t *testing.T) {
	road := newTestRoadway(t)
	// the ego is stopped 10 m from the merge point; only its broadcast
	// acceleration decides whether it arrives before vehicle 2
	sc := scene.Scene{
		{ID: scene.EgoID, Lane: roadway.MergeLane, S: 40, V: 0, Def: car},
		{ID: 2, Lane: roadway.MainLane, S: 70, V: 10, Def: car},
	}
	free := testIDM().Accel(10, 0, 0, false)

	waiting := &CooperativeIDM{Road: road, IDM: testIDM(), Cooperation: 1, FOV: 20}
	waiting.Observe(sc, 2)
	assert.InDelta(t, free, waiting.SampleAction(nil), 1e-12)

	going := &CooperativeIDM{Road: road, IDM: testIDM(), Cooperation: 1, FOV: 20, OtherAcc: 20}
	going.Observe(sc, 2)
	assert.Less(t, going.SampleAction(nil), free)
}

func TestCooperativeDecisionIgnoresPreviousAction(t *testing.T) {
	road := newTestRoadway(t)
	m := testIDM()
	m.DesiredSpeed = 6

	// vehicle 2 reaches the merge point in 2 s at its current speed, the
	// ego in 2.5 s, so there is nobody to yield to
	merging := scene.Scene{
		{ID: scene.EgoID, Lane: roadway.MergeLane, S: 35, V: 6, Def: car},
		{ID: 2, Lane: roadway.MainLane, S: 88, V: 6, Def: car},
	}
	braking := scene.Scene{
		{ID: 2, Lane: roadway.MainLane, S: 88, V: 15, Def: car},
		{ID: 3, Lane: roadway.MainLane, S: 91, V: 0, Def: car},
	}

	fresh := &CooperativeIDM{Road: road, IDM: m, Cooperation: 1, FOV: 20}
	fresh.Observe(merging, 2)
	want := fresh.SampleAction(nil)
	assert.InDelta(t, 0.0, want, 1e-12)

	used := &CooperativeIDM{Road: road, IDM: m, Cooperation: 1, FOV: 20}
	used.Observe(braking, 2)
	require.Equal(t, -9.0, used.SampleAction(nil))
	used.Observe(merging, 2)
	assert.Equal(t, want, used.SampleAction(nil))
}

func TestCooperativeNoise(t *testing.T) {
	road := newTestRoadway(t)
	sc := scene.Scene{{ID: 2, Lane: roadway.MainLane, S: 20, V: 5, Def: car}}

	sample := func(seed uint64) float64 {
		c := &CooperativeIDM{Road: road, IDM: testIDM(), Noise: 0.5}
		c.Observe(sc, 2)
		return c.SampleAction(rand.New(rand.NewPCG(seed, seed)))
	}
	base := testIDM().Accel(5, 0, 0, false)
	assert.Equal(t, sample(7), sample(7))
	assert.NotEqual(t, base, sample(7))
}

func TestModelsClone(t *testing.T) {
	m := Models{
		scene.EgoID: &Ego{Acc: 1},
		2:           &CooperativeIDM{IDM: testIDM(), Cooperation: 0.3},
	}
	cp := m.Clone()
	require.Len(t, cp, 2)

	ego, ok := cp.Ego()
	require.True(t, ok)
	ego.Acc = 5
	cp[2].(*CooperativeIDM).OtherAcc = -4

	orig, _ := m.Ego()
	assert.Equal(t, 1.0, orig.Acc)
	assert.Equal(t, 0.0, m[2].(*CooperativeIDM).OtherAcc)
}

func TestBroadcastOtherAccOnlyReachesMainLane(t *testing.T) {
	sc := scene.Scene{
		{ID: scene.EgoID, Lane: roadway.MergeLane},
		{ID: 2, Lane: roadway.MainLane},
		{ID: 3, Lane: roadway.MergeLane},
	}
	m := Models{
		scene.EgoID: &Ego{},
		2:           &CooperativeIDM{},
		3:           &CooperativeIDM{},
	}
	m.BroadcastOtherAcc(sc, -2)
	assert.Equal(t, -2.0, m[2].(*CooperativeIDM).OtherAcc)
	assert.Equal(t, 0.0, m[3].(*CooperativeIDM).OtherAcc)
}

func TestComfortDecelThreshold(t *testing.T) {
	c := &CooperativeIDM{IDM: testIDM()}
	assert.Equal(t, -2.0, c.ComfortDecelThreshold())
}
