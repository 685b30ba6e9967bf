package driver

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cxd309/merge-engine/internal/kinematics"
	"github.com/cxd309/merge-engine/internal/roadway"
	"github.com/cxd309/merge-engine/internal/scene"
)

// CooperativeIDM follows its front neighbor with an IDM and, depending on
// Cooperation, yields to a vehicle about to merge in front of it.
//
// Cooperation 0 ignores merging traffic. Cooperation 1 commands the more
// conservative of the plain car-following acceleration and the acceleration
// needed to follow the merging vehicle; values in between blend linearly.
type CooperativeIDM struct {
	Road *roadway.Roadway `json:"-"`
	IDM

	Cooperation float64 `json:"cooperation"`
	// FOV is how far up the merge lane, measured back from the merge point, a
	// merging vehicle is noticed.
	FOV float64 `json:"fov"`
	// OtherAcc is the last acceleration commanded by the ego, as broadcast by
	// the environment.
	OtherAcc float64 `json:"other_acc"`
	// Noise is the standard deviation of Gaussian noise added to each sampled
	// action. Zero samples deterministically.
	Noise float64 `json:"noise"`

	acc       float64 // target from the last Observe
	commanded float64 // last value returned by SampleAction, read by the hard brake check only
}

// ComfortDecelThreshold is the acceleration at or below which the driver
// is braking harder than it finds comfortable.
func (c *CooperativeIDM) ComfortDecelThreshold() float64 { return -c.ComfortDecel }

// Commanded returns the acceleration returned by the last SampleAction call.
func (c *CooperativeIDM) Commanded() float64 { return c.commanded }

func (c *CooperativeIDM) Observe(sc scene.Scene, id int) {
	self, ok := sc.Get(id)
	if !ok {
		c.acc = 0
		return
	}

	c.acc = c.follow(sc, self, scene.Front(c.Road, sc, id))
	if c.Cooperation <= 0 {
		return
	}
	merger, ok := c.merger(sc, self, c.acc)
	if !ok {
		return
	}
	gap := c.Road.ProjectToMain(merger.Lane, merger.S) - self.S - (self.Def.Length+merger.Def.Length)/2
	yield := math.Min(c.acc, c.Accel(self.V, merger.V, gap, true))
	c.acc += c.Cooperation * (yield - c.acc)
}

func (c *CooperativeIDM) follow(sc scene.Scene, self scene.Entity, front scene.Neighbor) float64 {
	if !front.Found {
		return c.Accel(self.V, 0, 0, false)
	}
	lead, _ := sc.Get(front.ID)
	gap := front.Distance - (self.Def.Length+lead.Def.Length)/2
	return c.Accel(self.V, lead.V, gap, true)
}

// merger finds the merge lane vehicle within the field of view that will reach
// the merge point no later than self, which is assumed to hold acc. Only main
// lane vehicles that have not yet passed the merge point can be merged in
// front of.
func (c *CooperativeIDM) merger(sc scene.Scene, self scene.Entity, acc float64) (scene.Entity, bool) {
	if self.Lane != roadway.MainLane || self.S > c.Road.MergePosition() {
		return scene.Entity{}, false
	}
	selfTTM := kinematics.TimeToTravel(c.Road.MergePosition()-self.S, self.V, acc)

	var (
		best  scene.Entity
		found bool
	)
	for _, e := range sc {
		if e.ID == self.ID || e.Lane != roadway.MergeLane {
			continue
		}
		d := -c.Road.DistanceToMerge(e.Lane, e.S)
		if d > c.FOV {
			continue
		}
		eAcc := 0.0
		if e.IsEgo() {
			eAcc = c.OtherAcc
		}
		if kinematics.TimeToTravel(d, e.V, eAcc) > selfTTM {
			continue
		}
		if !found || e.S > best.S {
			best, found = e, true
		}
	}
	return best, found
}

func (c *CooperativeIDM) SampleAction(rng *rand.Rand) float64 {
	a := c.acc
	if c.Noise > 0 {
		a += distuv.Normal{Mu: 0, Sigma: c.Noise, Src: rng}.Rand()
	}
	c.commanded = a
	return a
}

func (c *CooperativeIDM) Clone() Driver { cp := *c; return &cp }
