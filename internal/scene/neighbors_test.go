package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cxd309/merge-engine/internal/roadway"
)

func TestNeighborsMainLaneSubject(t *testing.T) {
	road := newTestRoadway(t)
	sc := Scene{
		{ID: EgoID, Lane: roadway.MainLane, S: 50},
		{ID: 2, Lane: roadway.MainLane, S: 70},
		{ID: 3, Lane: roadway.MainLane, S: 60},
		{ID: 4, Lane: roadway.MainLane, S: 20},
		{ID: 5, Lane: roadway.MergeLane, S: 35}, // projected to 95, ignored by a main lane subject
	}

	assert.Equal(t, Neighbor{ID: 3, Distance: 10, Found: true}, Front(road, sc, EgoID))
	assert.Equal(t, Neighbor{ID: 4, Distance: 30, Found: true}, Rear(road, sc, EgoID))
	assert.Equal(t, Front(road, sc, EgoID), MainFront(road, sc, EgoID))
	assert.Equal(t, Rear(road, sc, EgoID), MainRear(road, sc, EgoID))
	assert.Equal(t, Neighbor{ID: 3, Distance: 10, Found: true}, Rear(road, sc, 2))
}

func TestNeighborsMergeLaneSubjectProjects(t *testing.T) {
	road := newTestRoadway(t)
	// ego on the merge lane at s=30 projects to 90 on the main lane
	sc := Scene{
		{ID: EgoID, Lane: roadway.MergeLane, S: 30},
		{ID: 2, Lane: roadway.MergeLane, S: 36}, // projected 96
		{ID: 3, Lane: roadway.MainLane, S: 98},
		{ID: 4, Lane: roadway.MainLane, S: 85},
	}

	assert.Equal(t, Neighbor{ID: 2, Distance: 6, Found: true}, Front(road, sc, EgoID))
	assert.Equal(t, Neighbor{ID: 4, Distance: 5, Found: true}, Rear(road, sc, EgoID))
	assert.Equal(t, Neighbor{ID: 3, Distance: 8, Found: true}, MainFront(road, sc, EgoID))
	assert.Equal(t, Neighbor{ID: 4, Distance: 5, Found: true}, MainRear(road, sc, EgoID))
	assert.Equal(t, Neighbor{ID: 3, Distance: 2, Found: true}, MergePointRear(road, sc, EgoID))
}

func TestNeighborAbsentIsDistinctFromZeroDistance(t *testing.T) {
	road := newTestRoadway(t)

	alone := Scene{{ID: EgoID, Lane: roadway.MainLane, S: 50}}
	for _, n := range []Neighbor{
		Front(road, alone, EgoID),
		Rear(road, alone, EgoID),
		MainFront(road, alone, EgoID),
		MainRear(road, alone, EgoID),
		MergePointRear(road, alone, EgoID),
	} {
		assert.False(t, n.Found)
		assert.Equal(t, NoNeighbor, n)
	}

	level := Scene{
		{ID: EgoID, Lane: roadway.MainLane, S: 50},
		{ID: 2, Lane: roadway.MainLane, S: 50},
	}
	front := Front(road, level, EgoID)
	assert.True(t, front.Found)
	assert.Equal(t, 0.0, front.Distance)
	assert.False(t, Rear(road, level, EgoID).Found)
}

func TestNeighborUnknownSubject(t *testing.T) {
	road := newTestRoadway(t)
	sc := Scene{{ID: 2, Lane: roadway.MainLane, S: 50}}
	assert.False(t, Front(road, sc, EgoID).Found)
	assert.False(t, MainRear(road, sc, EgoID).Found)
}

func TestMergePointRearIgnoresVehiclesPastMerge(t *testing.T) {
	road := newTestRoadway(t)
	sc := Scene{
		{ID: EgoID, Lane: roadway.MergeLane, S: 10},
		{ID: 2, Lane: roadway.MainLane, S: 101},
		{ID: 3, Lane: roadway.MainLane, S: 100},
		{ID: 4, Lane: roadway.MainLane, S: 40},
	}
	assert.Equal(t, Neighbor{ID: 3, Distance: 0, Found: true}, MergePointRear(road, sc, EgoID))
}
