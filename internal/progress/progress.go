// Package progress prints a live status line of a run on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tempo/internal/core"
)

const defaultInterval = time.Second

type Progress struct {
	runInfo  *core.RunInfo
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopped  atomic.Bool
	quiet    bool
	output   io.Writer
	mu       sync.Mutex
}

func NewProgress(ri *core.RunInfo, quiet bool) *Progress {
	return &Progress{
		runInfo:  ri,
		interval: defaultInterval,
		quiet:    quiet,
		output:   os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// SetInterval changes how often the line is refreshed. It must be called
// before Start.
func (p *Progress) SetInterval(d time.Duration) {
	p.interval = d
}

func (p *Progress) Start() {
	if p.quiet {
		return
	}
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

func (p *Progress) run() {
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			p.printProgress()
		}
	}
}

func (p *Progress) printProgress() {
	line := p.line()
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K%s\r", line)
	p.mu.Unlock()
}

// line renders "[mm:ss] 42% | Iterations: N | Rate: x/s".
func (p *Progress) line() string {
	ri := p.runInfo
	elapsed := ri.RunTime()
	iterations := ri.Iteration() + 1
	rate := 0.0
	if elapsed > 0 {
		rate = float64(iterations) / elapsed.Seconds()
	}

	rounded := elapsed.Round(time.Second)
	mins := int(rounded.Minutes())
	secs := int(rounded.Seconds()) % 60
	s := fmt.Sprintf("[%02d:%02d] %.0f%% | Iterations: %d | Rate: %.1f/s",
		mins, secs, ri.Percentage(), iterations, rate)
	if ri.HasTag(core.TagWarmUp) {
		s += " | warming up"
	}
	return s
}

func (p *Progress) Stop() {
	if p.quiet || p.stopped.Swap(true) {
		return
	}
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K")
	p.mu.Unlock()
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K%s\n", message)
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...any) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K"+format+"\n", args...)
	p.mu.Unlock()
}
