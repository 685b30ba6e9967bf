package driver

import (
	"math"

	"github.com/samber/lo"
)

// idmDelta is the free-road acceleration exponent.
const idmDelta = 4

// IDM is the Intelligent Driver Model car follower.
// https://en.wikipedia.org/wiki/Intelligent_driver_model
type IDM struct {
	DesiredSpeed float64 `json:"desired_speed"` // m/s
	MinGap       float64 `json:"min_gap"`       // m, bumper to bumper at standstill
	TimeHeadway  float64 `json:"time_headway"`  // s
	MaxAccel     float64 `json:"max_accel"`     // m/s², positive
	ComfortDecel float64 `json:"comfort_decel"` // m/s², positive
	MaxDecel     float64 `json:"max_decel"`     // m/s², positive
}

// Accel returns the IDM acceleration at speed v behind a leader travelling at
// vLead with bumper-to-bumper gap. Without a leader only the free-road term
// applies. The result is clamped to [-MaxDecel, MaxAccel].
func (m IDM) Accel(v, vLead, gap float64, hasLead bool) float64 {
	free := 1.0
	if m.DesiredSpeed > 0 {
		free -= math.Pow(v/m.DesiredSpeed, idmDelta)
	}
	acc := m.MaxAccel * free
	if hasLead {
		if gap <= 0 {
			return -m.MaxDecel
		}
		sStar := m.MinGap + math.Max(0, v*m.TimeHeadway+v*(v-vLead)/(2*math.Sqrt(m.MaxAccel*m.ComfortDecel)))
		acc -= m.MaxAccel * math.Pow(sStar/gap, 2)
	}
	return lo.Clamp(acc, -m.MaxDecel, m.MaxAccel)
}
