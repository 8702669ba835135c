package gpio

import (
	"errors"
	"sync"
)

// Op is one call recorded by FakeLine.
type Op struct {
	Kind  string // "dir", "set", "get", "delay"
	Dir   Direction
	Level Level
	N     int
}

// FakeLine is a test double that replays scripted input levels.
// Each call to Level consumes the next entry of Levels; once exhausted the
// last entry repeats. Calls are recorded in Ops.
type FakeLine struct {
	mu sync.Mutex

	// Levels contains the scripted levels returned by Level.
	Levels []Level

	index int

	// Direction and Driven reflect the current line state.
	Direction Direction
	Driven    Level

	// Ops records every call in order.
	Ops []Op

	// Reads counts calls to Level.
	Reads int

	// DelayTotal accumulates microseconds passed to DelayMicroseconds.
	DelayTotal int

	// Closed tracks if Close was called.
	Closed bool

	// LevelError, if set, is returned by Level.
	LevelError error

	// DirectionError, if set, is returned by SetDirection.
	DirectionError error

	// OnDelay, if set, is called for each DelayMicroseconds.
	OnDelay func(n int)
}

// NewFakeLine creates a FakeLine idling as an output driven high.
func NewFakeLine(levels []Level) *FakeLine {
	return &FakeLine{Levels: levels, Direction: Output, Driven: High}
}

func (f *FakeLine) SetDirection(d Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, Op{Kind: "dir", Dir: d})
	if f.DirectionError != nil {
		return f.DirectionError
	}
	f.Direction = d
	return nil
}

func (f *FakeLine) SetLevel(l Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, Op{Kind: "set", Level: l})
	if f.Direction != Output {
		return errors.New("fake: set level on input line")
	}
	f.Driven = l
	return nil
}

// Level returns the next scripted level.
func (f *FakeLine) Level() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.LevelError != nil {
		return Low, f.LevelError
	}
	if f.Direction != Input {
		return Low, errors.New("fake: read level on output line")
	}
	if len(f.Levels) == 0 {
		return Low, errors.New("no levels configured")
	}

	l := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	f.Ops = append(f.Ops, Op{Kind: "get", Level: l})
	return l, nil
}

// DelayMicroseconds records the delay without sleeping.
func (f *FakeLine) DelayMicroseconds(n int) {
	f.mu.Lock()
	f.DelayTotal += n
	f.Ops = append(f.Ops, Op{Kind: "delay", N: n})
	hook := f.OnDelay
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset rewinds the script and clears recorded calls.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.Ops = nil
	f.Reads = 0
	f.DelayTotal = 0
	f.Closed = false
	f.Direction = Output
	f.Driven = High
}

// Idle reports whether the line is an output driven high.
func (f *FakeLine) Idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Direction == Output && f.Driven == High
}

// FrameLevels returns the level script a well-behaved sensor produces for
// the given bytes when sampled once per transition: the ack low and high,
// then for each bit (MSB first) a low, a high and the level seen at the
// sample point, then the end-of-frame low.
func FrameLevels(frame [5]byte) []Level {
	levels := make([]Level, 0, 2+40*3+1)
	levels = append(levels, Low, High)
	for _, b := range frame {
		for i := 7; i >= 0; i-- {
			levels = append(levels, Low, High, Level(b&(1<<uint(i)) != 0))
		}
	}
	return append(levels, Low)
}
