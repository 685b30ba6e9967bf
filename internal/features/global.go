package features

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/cxd309/merge-engine/internal/driver"
	"github.com/cxd309/merge-engine/internal/scene"
)

// GlobalExtract encodes the whole scene: the ego triple followed by a
// (distance to merge point, speed, cooperation) triple for every background
// vehicle in scene order. Cooperation is GlobalCooperationSentinel when the
// codec does not expose it. There is no inverse.
func (c *Codec) GlobalExtract(state scene.AugmentedScene, models driver.Models) []float64 {
	out := make([]float64, 3, 3+3*len(state.Scene))
	if ego, ok := state.Scene.Ego(); ok {
		out[0] = c.Road.DistanceToMerge(ego.Lane, ego.S)
		out[1] = ego.V
	}
	out[2] = state.Ego.Acc
	for _, e := range state.Scene {
		if e.IsEgo() {
			continue
		}
		coop := GlobalCooperationSentinel
		if c.ObserveCooperation {
			coop = cooperation(models, e.ID)
		}
		out = append(out, c.Road.DistanceToMerge(e.Lane, e.S), e.V, coop)
	}
	return out
}

func (c *Codec) globalScale(n int) ([]float64, error) {
	if n < 3 || n%3 != 0 {
		return nil, fmt.Errorf("%w: global vector needs 3+3n slots, got %d", ErrVectorLength, n)
	}
	s := make([]float64, n)
	s[0], s[1], s[2] = c.Length, c.MaxSpeed, c.MaxDecel
	for i := 3; i < n; i += 3 {
		s[i], s[i+1], s[i+2] = c.Length, c.MaxSpeed, 1
	}
	return s, nil
}

// GlobalNormalize returns a rescaled copy of a global vector.
func (c *Codec) GlobalNormalize(f []float64) ([]float64, error) {
	s, err := c.globalScale(len(f))
	if err != nil {
		return nil, err
	}
	out := append([]float64(nil), f...)
	floats.Div(out, s)
	return out, nil
}

// GlobalUnnormalize inverts GlobalNormalize.
func (c *Codec) GlobalUnnormalize(f []float64) ([]float64, error) {
	s, err := c.globalScale(len(f))
	if err != nil {
		return nil, err
	}
	out := append([]float64(nil), f...)
	floats.Mul(out, s)
	return out, nil
}
