//go:build linux

package gpio

import (
	"errors"
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphLine drives a line through periph.io's memory-mapped drivers, which
// switch direction considerably faster than the character device.
type PeriphLine struct {
	pin pgpio.PinIO
	dir Direction
}

// NewPeriphLine initializes the periph.io host and claims BCM pin as an
// output driven high.
func NewPeriphLine(pin int) (*PeriphLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %d (%s) not found in hardware", pin, name)
	}
	if err := p.Out(pgpio.High); err != nil {
		return nil, fmt.Errorf("set %s to output: %w", name, err)
	}
	return &PeriphLine{pin: p, dir: Output}, nil
}

func (p *PeriphLine) SetDirection(d Direction) error {
	var err error
	switch d {
	case Output:
		err = p.pin.Out(pgpio.High)
	case Input:
		err = p.pin.In(pgpio.PullUp, pgpio.NoEdge)
	default:
		return fmt.Errorf("set direction: invalid %v", d)
	}
	if err != nil {
		return fmt.Errorf("set direction %v: %w", d, err)
	}
	p.dir = d
	return nil
}

func (p *PeriphLine) SetLevel(l Level) error {
	if p.dir != Output {
		return errors.New("set level: line is not an output")
	}
	if err := p.pin.Out(pgpio.Level(l)); err != nil {
		return fmt.Errorf("set level %v: %w", l, err)
	}
	return nil
}

func (p *PeriphLine) Level() (Level, error) {
	return Level(p.pin.Read()), nil
}

func (p *PeriphLine) DelayMicroseconds(n int) {
	spin(n)
}

// Close parks the pin as an output driven high. periph.io pins need no
// explicit release.
func (p *PeriphLine) Close() error {
	if err := p.pin.Out(pgpio.High); err != nil {
		return fmt.Errorf("park pin: %w", err)
	}
	return nil
}
