package report

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// Serial writes the summary line to a serial port, CR LF terminated, for
// displays and loggers that expect the receiver's UART output.
type Serial struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// OpenSerial opens portName at baudRate, 8N1.
func OpenSerial(portName string, baudRate int) (*Serial, error) {
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
	return NewSerial(port), nil
}

// NewSerial writes to an already open port.
func NewSerial(port io.WriteCloser) *Serial {
	return &Serial{port: port}
}

// Report writes one line.
func (s *Serial) Report(r logic.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.port, FormatLine(r)+"\r\n"); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Close closes the port.
func (s *Serial) Close() error {
	return s.port.Close()
}
