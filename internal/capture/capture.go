// Package capture records sample streams for offline replay.
//
// Format: line-oriented text.
//
//   - Blank lines ignored.
//   - Lines starting with '#' ignored.
//   - Line "START" begins a new session; following times are relative to it.
//   - Data lines are: <t_ns>,<ax>,<ay>,<az>
//     where t_ns is nanoseconds since START and the values are in g.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/gesture-sensor/internal/gesture"
	"github.com/sweeney/gesture-sensor/internal/source"
)

// Record is one capture line. Start is true for a START marker, in which
// case the other fields are zero.
type Record struct {
	Start  bool
	At     time.Duration
	Sample gesture.Sample
}

// Reader parses a capture.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadAll parses every record. A capture that does not begin with START is
// treated as if it did.
func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{Start: true})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("line %d: missing comma: %q", lineNo, line)
		}
		tsNs, err := strconv.ParseInt(strings.TrimSpace(line[:comma]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", lineNo, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("line %d: negative timestamp %d", lineNo, tsNs)
		}
		sample, err := source.ParseLine(line[comma+1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(recs) == 0 {
			recs = append(recs, Record{Start: true})
		}
		recs = append(recs, Record{At: time.Duration(tsNs), Sample: sample})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Writer appends samples to a capture. It is not safe for concurrent use.
type Writer struct {
	w      *bufio.Writer
	c      io.Closer
	start  time.Time
	begun  bool
	closed bool
}

// NewWriter writes a capture to w. If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	ww := &Writer{w: bufio.NewWriterSize(w, 64*1024)}
	if c, ok := w.(io.Closer); ok {
		ww.c = c
	}
	return ww
}

// Comment writes a '#' line.
func (ww *Writer) Comment(text string) error {
	if ww.closed {
		return errors.New("capture writer is closed")
	}
	_, err := fmt.Fprintf(ww.w, "# %s\n", text)
	return err
}

// Start begins a new session at now. Write starts one implicitly.
func (ww *Writer) Start(now time.Time) error {
	if ww.closed {
		return errors.New("capture writer is closed")
	}
	if _, err := ww.w.WriteString("START\n"); err != nil {
		return err
	}
	ww.start = now
	ww.begun = true
	return nil
}

// Write appends a sample observed at now.
func (ww *Writer) Write(now time.Time, s gesture.Sample) error {
	if ww.closed {
		return errors.New("capture writer is closed")
	}
	if !ww.begun {
		if err := ww.Start(now); err != nil {
			return err
		}
	}
	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s,%s,%s\n", d.Nanoseconds(),
		formatG(s.AX), formatG(s.AY), formatG(s.AZ))
	return err
}

func formatG(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Flush writes buffered lines.
func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

// Close flushes and closes the underlying writer if it is closable.
func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		if ww.c != nil {
			_ = ww.c.Close()
		}
		return err
	}
	if ww.c != nil {
		return ww.c.Close()
	}
	return nil
}

// Replay runs records through fn with timestamps rebased onto origin. Each
// START marker calls reset (if non-nil) and rebases the following records
// so sessions are laid end to end without overlapping.
func Replay(records []Record, origin time.Time, reset func(), fn func(now time.Time, s gesture.Sample)) {
	base := origin
	last := origin
	for _, r := range records {
		if r.Start {
			if reset != nil && last.After(origin) {
				reset()
			}
			base = last
			continue
		}
		now := base.Add(r.At)
		last = now
		fn(now, r.Sample)
	}
}
