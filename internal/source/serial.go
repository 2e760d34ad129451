package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialConfig configures a wired board streaming text samples.
type SerialConfig struct {
	Port string
	Baud uint
}

// LineReader reads "ax,ay,az" lines. Blank lines and lines starting with
// '#' are skipped; unparsable lines are counted and dropped.
type LineReader struct {
	rc      io.ReadCloser
	br      *bufio.Reader
	dropped atomic.Uint64
	now     func() time.Time
}

// OpenSerial opens the serial port and returns a line reader on it.
func OpenSerial(cfg SerialConfig) (*LineReader, error) {
	opts := serial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              cfg.Baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}
	return NewLineReader(port), nil
}

// NewLineReader reads samples from any line-oriented stream.
func NewLineReader(rc io.ReadCloser) *LineReader {
	return &LineReader{
		rc:  rc,
		br:  bufio.NewReader(rc),
		now: time.Now,
	}
}

// Read returns the next well-formed sample. A read already in progress is
// not interrupted by ctx; Close the reader to unblock it.
func (l *LineReader) Read(ctx context.Context) (Reading, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}
		line, err := l.br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return Reading{}, err
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, perr := ParseLine(line)
		if perr != nil {
			l.dropped.Add(1)
			continue
		}
		return Reading{Sample: s, At: l.now()}, nil
	}
}

// Dropped returns the number of unparsable lines.
func (l *LineReader) Dropped() uint64 {
	return l.dropped.Load()
}

// Close closes the underlying stream.
func (l *LineReader) Close() error {
	return l.rc.Close()
}
