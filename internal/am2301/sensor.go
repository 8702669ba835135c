package am2301

import (
	"errors"
	"fmt"

	"github.com/sweeney/climate-sensor/internal/gpio"
)

// Timing holds the protocol's pulse widths and wait budgets. Budgets count
// line polls, each followed by PollDelay microseconds; they bound the number
// of polls, not wall-clock time.
type Timing struct {
	StartPulse  int // host start pulse, µs low
	AckBudget   int // polls allowed for each ack phase
	BitBudget   int // polls allowed for one bit's low and high phases together
	SampleDelay int // µs from a bit's rising edge to its sample point
	EndBudget   int // polls allowed for the end-of-frame low
	PollDelay   int // µs between polls
}

// DefaultTiming returns the timings of the AM2301 datasheet handshake.
func DefaultTiming() Timing {
	return Timing{
		StartPulse:  1000,
		AckBudget:   1000,
		BitBudget:   200,
		SampleDelay: 35,
		EndBudget:   200,
		PollDelay:   1,
	}
}

// Validate rejects timings that cannot complete a cycle.
func (t Timing) Validate() error {
	switch {
	case t.StartPulse <= 0:
		return fmt.Errorf("start pulse must be positive, got %d", t.StartPulse)
	case t.AckBudget <= 0:
		return fmt.Errorf("ack budget must be positive, got %d", t.AckBudget)
	case t.BitBudget <= 0:
		return fmt.Errorf("bit budget must be positive, got %d", t.BitBudget)
	case t.SampleDelay <= 0:
		return fmt.Errorf("sample delay must be positive, got %d", t.SampleDelay)
	case t.EndBudget <= 0:
		return fmt.Errorf("end budget must be positive, got %d", t.EndBudget)
	case t.PollDelay < 0:
		return fmt.Errorf("poll delay must not be negative, got %d", t.PollDelay)
	}
	return nil
}

// Sensor runs acquisition cycles with a fixed Timing. It holds no
// per-cycle state and performs no locking; callers must not run two
// acquisitions on the same line at once.
type Sensor struct {
	timing Timing
}

// New creates a Sensor. A zero Timing selects DefaultTiming.
func New(t Timing) (*Sensor, error) {
	if t == (Timing{}) {
		t = DefaultTiming()
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("am2301: %w", err)
	}
	return &Sensor{timing: t}, nil
}

// Timing returns the sensor's timing.
func (s *Sensor) Timing() Timing {
	return s.timing
}

// Acquire runs one acquisition cycle on line, which must be an output
// driven high. On every return the line is left as an output driven high.
func (s *Sensor) Acquire(line gpio.Line) (Reading, error) {
	frame, err := s.receive(line)

	// The bus idles on every path, before the frame is looked at.
	rerr := release(line)
	if err != nil {
		return Reading{}, err
	}
	if rerr != nil {
		return Reading{}, rerr
	}

	return Decode(frame)
}

// receive performs the handshake and samples 40 bits.
func (s *Sensor) receive(line gpio.Line) (Frame, error) {
	var frame Frame
	t := s.timing

	// Start: hold low, then release and listen.
	if err := line.SetLevel(gpio.Low); err != nil {
		return frame, lineError(err)
	}
	line.DelayMicroseconds(t.StartPulse)
	if err := line.SetLevel(gpio.High); err != nil {
		return frame, lineError(err)
	}
	if err := line.SetDirection(gpio.Input); err != nil {
		return frame, lineError(err)
	}

	if _, err := s.waitFor(line, gpio.Low, t.AckBudget, ErrAckTimeout); err != nil {
		return frame, err
	}
	if _, err := s.waitFor(line, gpio.High, t.AckBudget, ErrAckTimeout2); err != nil {
		return frame, err
	}

	for i := range frame {
		for b := 0; b < 8; b++ {
			bit, err := s.readBit(line)
			if err != nil {
				return frame, fmt.Errorf("%w (bit %d)", err, i*8+b)
			}
			frame[i] = frame[i]<<1 | bit
		}
	}

	if _, err := s.waitFor(line, gpio.Low, t.EndBudget, ErrEndTimeout); err != nil {
		return frame, err
	}
	return frame, nil
}

// readBit waits out one bit's low phase, then samples SampleDelay after the
// rising edge. A bit still high at the sample point is a 1.
func (s *Sensor) readBit(line gpio.Line) (byte, error) {
	left, err := s.waitFor(line, gpio.Low, s.timing.BitBudget, ErrBitTimeout)
	if err != nil {
		return 0, err
	}
	if _, err := s.waitFor(line, gpio.High, left, ErrBitTimeout); err != nil {
		return 0, err
	}

	line.DelayMicroseconds(s.timing.SampleDelay)

	l, err := line.Level()
	if err != nil {
		return 0, lineError(err)
	}
	if l == gpio.High {
		return 1, nil
	}
	return 0, nil
}

// waitFor polls line until it reads want, spending at most budget polls.
// It returns the unspent budget, or timeout once the budget is exhausted.
func (s *Sensor) waitFor(line gpio.Line, want gpio.Level, budget int, timeout error) (int, error) {
	for budget > 0 {
		l, err := line.Level()
		if err != nil {
			return 0, lineError(err)
		}
		budget--
		if l == want {
			return budget, nil
		}
		line.DelayMicroseconds(s.timing.PollDelay)
	}
	return 0, timeout
}

// release returns line to its idle state: output, driven high.
func release(line gpio.Line) error {
	derr := line.SetDirection(gpio.Output)
	lerr := line.SetLevel(gpio.High)
	if err := errors.Join(derr, lerr); err != nil {
		return lineError(err)
	}
	return nil
}

func lineError(err error) error {
	if errors.Is(err, ErrLine) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrLine, err)
}
