// Package capture reads and writes receiver edges as text records, one per
// line: the capture tick count in decimal, a space, then R for a rising edge
// or F for a falling one. Blank lines and lines starting with # are ignored.
//
// Records come from a microcontroller that timestamps edges on a serial
// port, or from a file saved earlier for replay.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// ErrRecord is returned for a line that is not a valid edge record.
var ErrRecord = errors.New("malformed edge record")

// errSkip marks lines that carry no record.
var errSkip = errors.New("skip")

// ParseRecord parses one edge record such as "12345 R".
func ParseRecord(line string) (logic.EdgeEvent, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return logic.EdgeEvent{}, errSkip
	}

	fields := strings.Fields(line)
	if len(fields) != 2 {
		return logic.EdgeEvent{}, fmt.Errorf("%w: %q", ErrRecord, line)
	}
	ticks, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return logic.EdgeEvent{}, fmt.Errorf("%w: ticks %q: %v", ErrRecord, fields[0], err)
	}

	var rising bool
	switch strings.ToUpper(fields[1]) {
	case "R":
		rising = true
	case "F":
		rising = false
	default:
		return logic.EdgeEvent{}, fmt.Errorf("%w: edge %q", ErrRecord, fields[1])
	}
	return logic.EdgeEvent{Timestamp: uint32(ticks), Rising: rising}, nil
}

// FormatRecord renders e as a record line without the trailing newline.
func FormatRecord(e logic.EdgeEvent) string {
	edge := "F"
	if e.Rising {
		edge = "R"
	}
	return strconv.FormatUint(uint64(e.Timestamp), 10) + " " + edge
}
