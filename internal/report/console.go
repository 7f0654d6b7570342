package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/sweeney/wx-receiver/internal/logic"
)

var (
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	lineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Console writes the summary line for each reading. On a terminal the line
// is prefixed with the reading time and coloured.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewConsole writes to w, colouring output when w is a terminal.
func NewConsole(w io.Writer) *Console {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Console{w: w, color: color}
}

// Report writes one line.
func (c *Console) Report(r logic.Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := FormatLine(r)
	if c.color {
		stamp := "--:--:--"
		if !r.Timestamp.IsZero() {
			stamp = r.Timestamp.Format("15:04:05")
		}
		line = timeStyle.Render(stamp) + " " + lineStyle.Render(line)
	}
	if _, err := fmt.Fprintln(c.w, line); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
