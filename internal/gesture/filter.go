package gesture

import (
	"math"
	"time"
)

// HighPass is a single-pole IIR high-pass filter for one channel.
// The zero value passes nothing; use NewHighPass.
type HighPass struct {
	alpha float64
	yPrev float64
	xPrev float64
}

// NewHighPass returns a high-pass filter with cutoff fc (Hz) designed for
// sample period dt.
func NewHighPass(fc float64, dt time.Duration) HighPass {
	rc := 1 / (2 * math.Pi * fc)
	step := dt.Seconds()
	return HighPass{alpha: rc / (rc + step)}
}

// Step feeds x and returns the filtered output.
//
//	y[n] = alpha * (y[n-1] + x[n] - x[n-1])
func (f *HighPass) Step(x float64) float64 {
	y := f.alpha * (f.yPrev + x - f.xPrev)
	f.yPrev = y
	f.xPrev = x
	return y
}

// Reset clears the filter memory.
func (f *HighPass) Reset() {
	f.yPrev = 0
	f.xPrev = 0
}

// LowPass is a single-pole exponential low-pass filter for one channel.
type LowPass struct {
	beta float64
	y    float64
}

// NewLowPass returns a low-pass filter with cutoff fc (Hz) designed for
// sample period dt.
func NewLowPass(fc float64, dt time.Duration) LowPass {
	rc := 1 / (2 * math.Pi * fc)
	step := dt.Seconds()
	return LowPass{beta: step / (rc + step)}
}

// Step feeds x and returns the filtered output.
//
//	y[n] = y[n-1] + beta * (x[n] - y[n-1])
func (f *LowPass) Step(x float64) float64 {
	f.y += f.beta * (x - f.y)
	return f.y
}

// Reset clears the filter memory.
func (f *LowPass) Reset() {
	f.y = 0
}

// FilterBank holds one high-pass and one low-pass filter per sensor axis.
// Memory starts at zero, so the first few samples of a session are a
// settling transient.
type FilterBank struct {
	hpX, hpY, hpZ HighPass
	lpX, lpY, lpZ LowPass
}

// NewFilterBank builds the per-axis filters from the tuning.
func NewFilterBank(cfg Config) FilterBank {
	return FilterBank{
		hpX: NewHighPass(cfg.HighPassCutoff, cfg.SampleDT),
		hpY: NewHighPass(cfg.HighPassCutoff, cfg.SampleDT),
		hpZ: NewHighPass(cfg.HighPassCutoff, cfg.SampleDT),
		lpX: NewLowPass(cfg.LowPassCutoff, cfg.SampleDT),
		lpY: NewLowPass(cfg.LowPassCutoff, cfg.SampleDT),
		lpZ: NewLowPass(cfg.LowPassCutoff, cfg.SampleDT),
	}
}

// Step filters one sample and returns the gravity estimate (low-pass) and
// the motion components (high-pass).
func (b *FilterBank) Step(s Sample) (gravity, motion Vec3) {
	gravity = Vec3{
		X: b.lpX.Step(s.AX),
		Y: b.lpY.Step(s.AY),
		Z: b.lpZ.Step(s.AZ),
	}
	motion = Vec3{
		X: b.hpX.Step(s.AX),
		Y: b.hpY.Step(s.AY),
		Z: b.hpZ.Step(s.AZ),
	}
	return gravity, motion
}

// Reset clears every channel.
func (b *FilterBank) Reset() {
	for _, f := range []*HighPass{&b.hpX, &b.hpY, &b.hpZ} {
		f.Reset()
	}
	for _, f := range []*LowPass{&b.lpX, &b.lpY, &b.lpZ} {
		f.Reset()
	}
}
