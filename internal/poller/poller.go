// Package poller owns the sensor line and enforces the caller side of the
// acquisition contract: one acquisition at a time, a minimum spacing between
// acquisitions, and a hard timeout after which the line is forced idle.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sweeney/climate-sensor/internal/am2301"
	"github.com/sweeney/climate-sensor/internal/gpio"
)

// Defaults for Config.
const (
	DefaultMinInterval = 2 * time.Second
	DefaultTimeout     = 250 * time.Millisecond
)

// ErrAcquireTimeout is returned when an acquisition overruns Config.Timeout.
var ErrAcquireTimeout = fmt.Errorf("poller: acquire timeout: %w", am2301.ErrAborted)

// Acquirer runs one acquisition cycle. *am2301.Sensor implements it.
type Acquirer interface {
	Acquire(line gpio.Line) (am2301.Reading, error)
}

// Config controls acquisition cadence.
type Config struct {
	// MinInterval is the minimum spacing between acquisitions.
	MinInterval time.Duration
	// Timeout bounds a whole acquisition.
	Timeout time.Duration
}

// Poller serializes acquisitions on one line.
type Poller struct {
	mu      sync.Mutex
	line    gpio.Line
	sensor  Acquirer
	limiter *rate.Limiter
	timeout time.Duration
}

// New creates a Poller. Zero Config fields take the defaults.
func New(line gpio.Line, sensor Acquirer, cfg Config) *Poller {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Poller{
		line:    line,
		sensor:  sensor,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		timeout: cfg.Timeout,
	}
}

type result struct {
	reading am2301.Reading
	err     error
}

// Poll waits for the next free slot, then runs one acquisition. If the
// acquisition overruns the timeout or ctx is done first, the line is forced
// back to output/high and Poll returns once the acquisition has stopped
// touching it.
func (p *Poller) Poll(ctx context.Context) (am2301.Reading, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.limiter.Wait(ctx); err != nil {
		return am2301.Reading{}, fmt.Errorf("%w: wait for poll slot: %w", am2301.ErrAborted, err)
	}

	guard := newGuardedLine(p.line)
	done := make(chan result, 1)
	go func() {
		r, err := p.sensor.Acquire(guard)
		done <- result{reading: r, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	var cause error
	select {
	case res := <-done:
		return res.reading, res.err
	case <-timer.C:
		cause = ErrAcquireTimeout
	case <-ctx.Done():
		cause = fmt.Errorf("%w: %w", am2301.ErrAborted, ctx.Err())
	}

	if err := guard.abort(); err != nil {
		log.Warn().Err(err).Msg("poller: failed to idle line after abort")
	}
	// The acquisition may have finished while the timer fired.
	if res := <-done; res.err == nil {
		return res.reading, nil
	}
	return am2301.Reading{}, cause
}
