package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// FrameSize is the length of a notification payload: three little-endian
// float32 values in g.
const FrameSize = 12

var (
	// ErrShortFrame is returned for payloads under FrameSize bytes.
	ErrShortFrame = errors.New("short frame")
	// ErrNonFinite is returned when a decoded value is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")
)

// DecodeFrame decodes a binary notification payload. Bytes beyond
// FrameSize are ignored.
func DecodeFrame(b []byte) (gesture.Sample, error) {
	if len(b) < FrameSize {
		return gesture.Sample{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	var v [3]float64
	for i := range v {
		f := float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return gesture.Sample{}, ErrNonFinite
		}
		v[i] = f
	}
	return gesture.Sample{AX: v[0], AY: v[1], AZ: v[2]}, nil
}

// EncodeFrame is the inverse of DecodeFrame. Values are narrowed to float32.
func EncodeFrame(s gesture.Sample) []byte {
	b := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(s.AX)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(s.AY)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(s.AZ)))
	return b
}

// ParseLine parses a text sample "ax,ay,az". Whitespace around fields is
// ignored.
func ParseLine(line string) (gesture.Sample, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 3 {
		return gesture.Sample{}, fmt.Errorf("want 3 fields, got %d in %q", len(fields), line)
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return gesture.Sample{}, fmt.Errorf("field %d: %w", i, err)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return gesture.Sample{}, ErrNonFinite
		}
		v[i] = x
	}
	return gesture.Sample{AX: v[0], AY: v[1], AZ: v[2]}, nil
}
