package poller

import (
	"sync"

	"github.com/sweeney/climate-sensor/internal/am2301"
	"github.com/sweeney/climate-sensor/internal/gpio"
)

// guardedLine wraps a line for a single acquisition. Once aborted, every
// operation fails with am2301.ErrAborted, so an abandoned acquisition
// cannot drive the line again.
type guardedLine struct {
	mu      sync.Mutex
	line    gpio.Line
	aborted bool
}

func newGuardedLine(line gpio.Line) *guardedLine {
	return &guardedLine{line: line}
}

func (g *guardedLine) SetDirection(d gpio.Direction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted {
		return am2301.ErrAborted
	}
	return g.line.SetDirection(d)
}

func (g *guardedLine) SetLevel(l gpio.Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted {
		return am2301.ErrAborted
	}
	return g.line.SetLevel(l)
}

func (g *guardedLine) Level() (gpio.Level, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted {
		return gpio.Low, am2301.ErrAborted
	}
	return g.line.Level()
}

// DelayMicroseconds returns immediately once aborted.
func (g *guardedLine) DelayMicroseconds(n int) {
	g.mu.Lock()
	aborted := g.aborted
	g.mu.Unlock()
	if !aborted {
		g.line.DelayMicroseconds(n)
	}
}

// Close is a no-op; the poller owns the underlying line.
func (g *guardedLine) Close() error {
	return nil
}

// abort cuts the acquisition off and forces the underlying line back to
// output, driven high.
func (g *guardedLine) abort() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aborted = true
	if err := g.line.SetDirection(gpio.Output); err != nil {
		return err
	}
	return g.line.SetLevel(gpio.High)
}
