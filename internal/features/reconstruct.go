package features

import (
	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

// Ids given to reconstructed neighbors.
const (
	FrontID = iota + 2
	MainFrontID
	MainRearID
	MergeRearID
)

// Reconstruct builds an approximate state from a normalized compact vector.
// Only the ego and the four neighbors are recovered, at the relative
// positions and speeds the vector records. Cooperation and true identities
// are lost, and a negative headway means the neighbor was absent.
func (c *Codec) Reconstruct(compact [CompactSize]float64) scene.AugmentedScene {
	var full Vector
	for i, slot := range compactSlots {
		full[slot] = compact[i]
	}
	u := c.Unnormalize(full)

	lane, s := c.Road.FromMergeDistance(u[0])
	sc := scene.Scene{{ID: scene.EgoID, Lane: lane, S: s, V: u[1], Def: c.Def}}
	proj := c.Road.ProjectToMain(lane, s)

	add := func(id int, lane roadway.LaneID, s, v float64) {
		sc = append(sc, scene.Entity{ID: id, Lane: lane, S: s, V: v, Def: c.Def})
	}
	if h := u[3]; h >= 0 {
		if lane == roadway.MergeLane && s+h <= c.Road.LaneEnd(roadway.MergeLane) {
			add(FrontID, roadway.MergeLane, s+h, u[4])
		} else {
			add(FrontID, roadway.MainLane, proj+h, u[4])
		}
	}
	if h := u[6]; h >= 0 {
		add(MainFrontID, roadway.MainLane, proj+h, u[7])
	}
	if h := u[9]; h >= 0 {
		add(MainRearID, roadway.MainLane, proj-h, u[10])
	}
	if h := u[12]; h >= 0 {
		add(MergeRearID, roadway.MainLane, c.Road.MergePosition()-h, u[13])
	}
	return scene.AugmentedScene{Scene: sc, Ego: scene.EgoInfo{Acc: u[2]}}
}
