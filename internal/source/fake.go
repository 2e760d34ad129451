package source

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	mu sync.Mutex

	// Readings contains the scripted readings. Each call to Read consumes
	// the next one; io.EOF follows the last.
	Readings []Reading

	// Errors maps an index in Readings to an error returned instead of
	// that reading (for example ErrReset). The reading is still consumed.
	Errors map[int]error

	index  int
	closed bool
}

// NewFakeReader creates a FakeReader that emits samples at the given
// period starting at start.
func NewFakeReader(start time.Time, period time.Duration, samples []gesture.Sample) *FakeReader {
	rs := make([]Reading, len(samples))
	for i, s := range samples {
		rs[i] = Reading{Sample: s, At: start.Add(time.Duration(i) * period)}
	}
	return &FakeReader{Readings: rs}
}

// Read returns the next scripted reading.
func (f *FakeReader) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.index >= len(f.Readings) {
		return Reading{}, io.EOF
	}
	i := f.index
	f.index++
	if err, ok := f.Errors[i]; ok {
		return Reading{}, err
	}
	return f.Readings[i], nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeReader) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
