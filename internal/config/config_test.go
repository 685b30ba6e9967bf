package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100.0, cfg.GetMainLaneLength())
	assert.Equal(t, 0.5, cfg.GetTimeStep())
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, cfg.GetJerkLevels())
	assert.Len(t, cfg.GetAccelLevels(), 6)
	assert.Equal(t, -4.0, cfg.GetMaxDeceleration())
	assert.Equal(t, TrafficSpeedMixed, cfg.GetTrafficSpeed())
	assert.Equal(t, CooperationUniform, cfg.GetCooperationPolicy())
	assert.True(t, cfg.GetObserveSpeed())
	assert.False(t, cfg.GetObserveCooperation())
	assert.InDelta(t, math.Pi/6, cfg.GetMergeAngle(), 1e-12)
}

func TestGetJerkLevelsReturnsCopy(t *testing.T) {
	cfg := &EnvironmentConfig{JerkLevels: []float64{-2, -1, 0, 1, 2}}
	levels := cfg.GetJerkLevels()
	levels[0] = 99
	assert.Equal(t, -2.0, cfg.JerkLevels[0])
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.json")
	data := `{
  "main_lane_length": 150,
  "time_step": 0.1,
  "cooperation_policy": "fixed",
  "cooperation": 1,
  "observe_cooperation": true
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 150.0, cfg.GetMainLaneLength())
	assert.Equal(t, 0.1, cfg.GetTimeStep())
	assert.Equal(t, CooperationFixed, cfg.GetCooperationPolicy())
	assert.Equal(t, 1.0, cfg.GetCooperation())
	assert.True(t, cfg.GetObserveCooperation())
	// untouched fields keep their defaults
	assert.Equal(t, 50.0, cfg.GetMergeLaneLength())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	data := `
max_cars: 8
min_cars: 2
random_n_cars: true
traffic_speed: fixed
desired_speed: 7.5
jerk_levels: [-2, -1, 0, 1, 2]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.GetMaxCars())
	assert.Equal(t, 2, cfg.GetMinCars())
	assert.True(t, cfg.GetRandomNCars())
	assert.Equal(t, TrafficSpeedFixed, cfg.GetTrafficSpeed())
	assert.Equal(t, 7.5, cfg.GetDesiredSpeed())
	assert.Equal(t, []float64{-2, -1, 0, 1, 2}, cfg.GetJerkLevels())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "env.txt")
	require.NoError(t, os.WriteFile(txt, []byte("{}"), 0644))
	_, err = Load(txt)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"time_step": "fast"`), 0644))
	_, err = Load(broken)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"time_step": -1}`), 0644))
	_, err = Load(bad)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EnvironmentConfig
		wantErr bool
	}{
		{name: "defaults", cfg: EnvironmentConfig{}},
		{name: "zero time step", cfg: EnvironmentConfig{TimeStep: PtrFloat64(0)}, wantErr: true},
		{name: "four jerk levels", cfg: EnvironmentConfig{JerkLevels: []float64{-1, 0, 1, 2}}, wantErr: true},
		{name: "positive max deceleration", cfg: EnvironmentConfig{MaxDeceleration: PtrFloat64(1)}, wantErr: true},
		{name: "zero max acceleration", cfg: EnvironmentConfig{MaxAcceleration: PtrFloat64(0)}, wantErr: true},
		{name: "discount above one", cfg: EnvironmentConfig{Discount: PtrFloat64(1.5)}, wantErr: true},
		{name: "unknown traffic speed", cfg: EnvironmentConfig{TrafficSpeed: PtrString("fast")}, wantErr: true},
		{name: "mismatched mixed weights", cfg: EnvironmentConfig{MixedSpeeds: []float64{4, 5}}, wantErr: true},
		{name: "unknown cooperation policy", cfg: EnvironmentConfig{CooperationPolicy: PtrString("random")}, wantErr: true},
		{name: "cooperation out of range", cfg: EnvironmentConfig{Cooperation: PtrFloat64(1.2)}, wantErr: true},
		{name: "inverted burn-in", cfg: EnvironmentConfig{MinBurnIn: PtrInt(5), MaxBurnIn: PtrInt(2)}, wantErr: true},
		{name: "flat merge angle", cfg: EnvironmentConfig{MergeAngle: PtrFloat64(0)}, wantErr: true},
		{name: "negative std", cfg: EnvironmentConfig{InitialVelocityStd: PtrFloat64(-0.1)}, wantErr: true},
		{name: "zero desired speed", cfg: EnvironmentConfig{DesiredSpeed: PtrFloat64(0)}, wantErr: true},
		{name: "zero mixed speed", cfg: EnvironmentConfig{MixedSpeeds: []float64{0, 5}, MixedSpeedWeights: []float64{1, 1}}, wantErr: true},
		{name: "fixed policy", cfg: EnvironmentConfig{TrafficSpeed: PtrString(TrafficSpeedFixed), CooperationPolicy: PtrString(CooperationBinary)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateReportsFirstInvalidField(t *testing.T) {
	cfg := EnvironmentConfig{
		TimeStep:    PtrFloat64(0),
		LaneWidth:   PtrFloat64(0),
		IDMMaxAccel: PtrFloat64(-1),
	}
	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "lane_width")
	}
}
