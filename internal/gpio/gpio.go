// Package gpio provides a bidirectional GPIO line with hardware abstraction.
// The real implementations use the Linux GPIO character device or periph.io.
// The fake implementation replays scripted levels so callers can be tested
// without hardware or real timing.
package gpio

import "fmt"

// Direction is the configured direction of a line.
type Direction int

const (
	Output Direction = iota
	Input
)

func (d Direction) String() string {
	switch d {
	case Output:
		return "OUTPUT"
	case Input:
		return "INPUT"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Level is the electrical level of a line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Line is a single GPIO line that can be switched between output and input.
type Line interface {
	// SetDirection switches the line between OUTPUT and INPUT.
	SetDirection(d Direction) error

	// SetLevel drives the line. Only valid in OUTPUT.
	SetLevel(l Level) error

	// Level samples the line. Only valid in INPUT.
	Level() (Level, error)

	// DelayMicroseconds blocks for n microseconds without yielding to the
	// scheduler.
	DelayMicroseconds(n int)

	// Close releases the line.
	Close() error
}

// DefaultPin is the BCM pin the sensor data wire is attached to.
const DefaultPin = 4

// DefaultChip is the GPIO character device used by the cdev backend.
const DefaultChip = "gpiochip0"

// Driver names accepted by Open.
const (
	DriverCdev   = "cdev"
	DriverPeriph = "periph"
)
