// Package destination implements the sinks reporters publish measurements to.
package destination

import (
	"fmt"
	"io"
	"os"
	"sync"

	"tempo/internal/core"
)

// Console prints every measurement on its own line.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console destination writing to out, or to stdout when
// out is nil.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

func (c *Console) Open() error  { return nil }
func (c *Console) Close() error { return nil }

func (c *Console) Report(m *core.Measurement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, m.String())
	return err
}

func (c *Console) String() string { return "console" }
