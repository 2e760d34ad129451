package gesture

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the tuning constants of the engine. All values are fixed for
// the lifetime of an Engine.
type Config struct {
	// ThresholdHigh is the base trigger threshold in g (TH_HI).
	ThresholdHigh float64
	// ThresholdLow is the base release threshold in g (TH_LO).
	ThresholdLow float64
	// HighPassCutoff and LowPassCutoff are filter cutoffs in Hz.
	HighPassCutoff float64
	LowPassCutoff  float64
	// VerticalScale multiplies both thresholds for the up/down detector.
	VerticalScale float64
	// VerticalDominance is the ratio |fvert| must exceed |fx| by.
	VerticalDominance float64

	Refractory             time.Duration
	VerticalRefractory     time.Duration
	AxisCooldown           time.Duration
	MutualBlock            time.Duration
	VerticalToLateralBlock time.Duration
	PostVerticalFreeze     time.Duration

	MinPulse time.Duration
	MaxPulse time.Duration

	// SampleDT is the nominal sample period the filters are designed for.
	SampleDT time.Duration

	// GravityConfidence is the minimum low-pass magnitude (g) on the dominant
	// axis before the vertical axis is reassigned.
	GravityConfidence float64
	// GravityFloor is the minimum gravity magnitude (g) to project onto.
	GravityFloor float64
}

// DefaultConfig returns the canonical tuning for a wrist-worn sensor at 50 Hz.
func DefaultConfig() Config {
	return Config{
		ThresholdHigh:          0.45,
		ThresholdLow:           0.25,
		HighPassCutoff:         2.3,
		LowPassCutoff:          0.5,
		VerticalScale:          2.2,
		VerticalDominance:      1.8,
		Refractory:             350 * time.Millisecond,
		VerticalRefractory:     600 * time.Millisecond,
		AxisCooldown:           500 * time.Millisecond,
		MutualBlock:            350 * time.Millisecond,
		VerticalToLateralBlock: 300 * time.Millisecond,
		PostVerticalFreeze:     350 * time.Millisecond,
		MinPulse:               100 * time.Millisecond,
		MaxPulse:               900 * time.Millisecond,
		SampleDT:               20 * time.Millisecond,
		GravityConfidence:      0.6,
		GravityFloor:           0.2,
	}
}

// Validate reports the first inconsistency in the tuning.
func (c Config) Validate() error {
	if c.ThresholdHigh <= 0 || c.ThresholdLow <= 0 {
		return errors.New("thresholds must be > 0")
	}
	if c.ThresholdLow >= c.ThresholdHigh {
		return fmt.Errorf("release threshold %.3f must be below trigger threshold %.3f", c.ThresholdLow, c.ThresholdHigh)
	}
	if c.HighPassCutoff <= 0 || c.LowPassCutoff <= 0 {
		return errors.New("filter cutoffs must be > 0")
	}
	if c.SampleDT <= 0 {
		return errors.New("sample period must be > 0")
	}
	if c.VerticalScale <= 0 {
		return errors.New("vertical scale must be > 0")
	}
	if c.VerticalDominance < 0 {
		return errors.New("vertical dominance must be >= 0")
	}
	if c.GravityConfidence < 0 {
		return fmt.Errorf("gravity confidence must be >= 0, got %v", c.GravityConfidence)
	}
	if c.GravityFloor < 0 {
		return fmt.Errorf("gravity floor must be >= 0, got %v", c.GravityFloor)
	}
	if c.MinPulse < 0 || c.MaxPulse <= c.MinPulse {
		return fmt.Errorf("pulse window [%v, %v] is empty", c.MinPulse, c.MaxPulse)
	}
	windows := map[string]time.Duration{
		"refractory":                c.Refractory,
		"vertical refractory":       c.VerticalRefractory,
		"axis cooldown":             c.AxisCooldown,
		"mutual block":              c.MutualBlock,
		"vertical-to-lateral block": c.VerticalToLateralBlock,
		"post-vertical freeze":      c.PostVerticalFreeze,
	}
	for name, d := range windows {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0, got %v", name, d)
		}
	}
	return nil
}

// LateralParams returns the pulse parameters of the left/right detector.
func (c Config) LateralParams() PulseParams {
	return PulseParams{
		High:        c.ThresholdHigh,
		Low:         c.ThresholdLow,
		Refractory:  c.Refractory,
		MinDuration: c.MinPulse,
		MaxDuration: c.MaxPulse,
	}
}

// VerticalParams returns the pulse parameters of the up/down detector.
// The release threshold is scaled a little less than the trigger.
func (c Config) VerticalParams() PulseParams {
	return PulseParams{
		High:        c.ThresholdHigh * c.VerticalScale,
		Low:         c.ThresholdLow * c.VerticalScale * 0.9,
		Refractory:  c.VerticalRefractory,
		MinDuration: c.MinPulse,
		MaxDuration: c.MaxPulse,
	}
}

// verticalAmplitudeFloor is the minimum |fvert| before the up/down detector
// is fed at all.
func (c Config) verticalAmplitudeFloor() float64 {
	return c.ThresholdLow * c.VerticalScale * 0.8
}
