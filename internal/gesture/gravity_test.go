package gesture

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGravityEstimatorStartsOnZ(t *testing.T) {
	e := NewGravityEstimator(0.6)

	st := e.State()
	assert.Equal(t, AxisZ, st.VerticalAxis)
	assert.Equal(t, AxisNone, st.LastMaxAxis)
	assert.True(t, st.LastChange.IsZero())
}

func TestGravityEstimatorMapping(t *testing.T) {
	tests := []struct {
		name        string
		start       Vec3
		g           Vec3
		wantAxis    Axis
		wantMax     Axis
		wantChanged bool
	}{
		{"z dominant makes y vertical", Vec3{}, Vec3{Z: 0.98}, AxisY, AxisZ, true},
		{"negative z counts too", Vec3{}, Vec3{Z: -0.9}, AxisY, AxisZ, true},
		{"y dominant keeps z vertical", Vec3{}, Vec3{Y: 0.9, Z: 0.1}, AxisZ, AxisY, false},
		{"y dominant after z moves back", Vec3{Z: 1}, Vec3{Y: 0.9}, AxisZ, AxisY, true},
		{"x dominant keeps current axis", Vec3{Z: 1}, Vec3{X: -0.95, Z: 0.2}, AxisY, AxisX, false},
		{"tie resolves to x", Vec3{}, Vec3{X: 0.7, Y: 0.7, Z: 0.7}, AxisZ, AxisX, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewGravityEstimator(0.6)
			if tt.start != (Vec3{}) {
				e.Update(tt.start, t0)
			}
			now := t0.Add(time.Second)

			changed := e.Update(tt.g, now)

			st := e.State()
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantAxis, st.VerticalAxis)
			assert.Equal(t, tt.wantMax, st.LastMaxAxis)
			if changed {
				assert.Equal(t, now, st.LastChange)
			}
		})
	}
}

func TestGravityEstimatorIgnoresWeakReadings(t *testing.T) {
	e := NewGravityEstimator(0.6)
	e.Update(Vec3{Z: 1}, t0)

	changed := e.Update(Vec3{Y: 0.59, Z: 0.1}, t0.Add(time.Second))

	st := e.State()
	assert.False(t, changed)
	assert.Equal(t, AxisY, st.VerticalAxis)
	assert.Equal(t, AxisZ, st.LastMaxAxis)
	assert.Equal(t, t0, st.LastChange)
}

func TestGravityEstimatorRepeatedAxisKeepsChangeTime(t *testing.T) {
	e := NewGravityEstimator(0.6)
	e.Update(Vec3{Z: 1}, t0)
	e.Update(Vec3{Z: 1}, t0.Add(time.Second))

	assert.Equal(t, t0, e.State().LastChange)
}

func TestVerticalExtractorWeakGravity(t *testing.T) {
	v := NewVerticalExtractor(DefaultConfig())

	assert.Equal(t, 0.0, v.Extract(Vec3{Z: 0.2}, Sample{AZ: 3}))
	assert.Equal(t, 0.0, v.Extract(Vec3{}, Sample{AX: 1}))

	// The skipped samples must not have advanced the filter.
	fresh := NewVerticalExtractor(DefaultConfig())
	assert.Equal(t, fresh.Extract(Vec3{Z: 1}, Sample{AZ: 1}), v.Extract(Vec3{Z: 1}, Sample{AZ: 1}))
}

func TestVerticalExtractorProjectsOntoGravity(t *testing.T) {
	cfg := DefaultConfig()
	hp := NewHighPass(cfg.HighPassCutoff, cfg.SampleDT)
	v := NewVerticalExtractor(cfg)

	// Gravity tilted halfway between y and z; a sample along y projects
	// onto it with factor 1/sqrt(2).
	g := Vec3{Y: 0.7, Z: 0.7}
	got := v.Extract(g, Sample{AY: 1})
	want := hp.Step(1 / math.Sqrt2)
	assert.InDelta(t, want, got, 1e-12)

	// Acceleration orthogonal to gravity contributes nothing.
	v.Reset()
	hp.Reset()
	assert.InDelta(t, hp.Step(0), v.Extract(g, Sample{AX: 2}), 1e-12)
}
