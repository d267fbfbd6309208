package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"forum-sync/internal/batch"
)

// Console prints operator messages with a colored level tag and progress as a percentage.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	colors map[batch.Level]*color.Color
}

// NewConsole writes to w (stdout when nil). noColor forces plain output.
func NewConsole(w io.Writer, noColor bool) *Console {
	if w == nil {
		w = os.Stdout
	}
	c := &Console{
		w: w,
		colors: map[batch.Level]*color.Color{
			batch.Info:    color.New(color.FgCyan),
			batch.Warning: color.New(color.FgYellow),
			batch.Error:   color.New(color.FgHiRed),
			batch.Success: color.New(color.FgGreen, color.Bold),
		},
	}
	for _, col := range c.colors {
		if noColor {
			col.DisableColor()
		} else {
			col.EnableColor()
		}
	}
	return c
}

func (c *Console) Progress(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "[%3.0f%%]\n", fraction*100)
}

func (c *Console) Message(level batch.Level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := fmt.Sprintf("%-7s", level)
	if col, ok := c.colors[level]; ok {
		tag = col.Sprint(tag)
	}
	_, _ = fmt.Fprintf(c.w, "%s %s\n", tag, text)
}
