package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// Source delivers edges parsed from a record stream. It satisfies
// gpio.EdgeSource.
type Source struct {
	name string
	rc   io.ReadCloser

	closeOnce sync.Once
	closeErr  error

	malformed atomic.Uint64
}

// NewSource wraps an open record stream. name is used in errors and logs.
func NewSource(name string, rc io.ReadCloser) *Source {
	return &Source{name: name, rc: rc}
}

// OpenSerial opens a serial port carrying edge records.
func OpenSerial(portName string, baudRate int) (*Source, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return NewSource(fmt.Sprintf("serial %s @ %d baud", portName, baudRate), port), nil
}

// OpenFile opens a saved capture for replay.
func OpenFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return NewSource(path, f), nil
}

// Run reads records until the stream ends, ctx is cancelled or a read fails.
// Malformed lines are counted and skipped. End of stream returns nil.
func (s *Source) Run(ctx context.Context, handle func(logic.EdgeEvent)) error {
	// A blocked read only returns once the stream is closed.
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	sc := bufio.NewScanner(s.rc)
	line := 0
	for sc.Scan() {
		line++
		e, err := ParseRecord(sc.Text())
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			s.malformed.Add(1)
			log.Debug("capture: skipping record", "source", s.name, "line", line, "err", err)
			continue
		}
		handle(e)
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", s.name, err)
	}
	return nil
}

// Malformed returns the number of lines that failed to parse.
func (s *Source) Malformed() uint64 {
	return s.malformed.Load()
}

// Name describes where the records come from.
func (s *Source) Name() string {
	return s.name
}

// Close closes the underlying stream. It is safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.rc.Close()
	})
	return s.closeErr
}

// WriteRecords writes edges as record lines.
func WriteRecords(w io.Writer, edges []logic.EdgeEvent) error {
	bw := bufio.NewWriter(w)
	for _, e := range edges {
		if _, err := bw.WriteString(FormatRecord(e) + "\n"); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
