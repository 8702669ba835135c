//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// consumer is the label shown by gpioinfo for lines held by this daemon.
const consumer = "climate-sensor"

// Open returns a Line for pin using the named driver.
func Open(driver, chip string, pin int) (Line, error) {
	switch driver {
	case DriverCdev, "":
		return NewCdevLine(chip, pin)
	case DriverPeriph:
		return NewPeriphLine(pin)
	}
	return nil, fmt.Errorf("unknown gpio driver %q", driver)
}

// CdevLine drives a line through the Linux GPIO character device.
type CdevLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	dir  Direction
}

// NewCdevLine requests pin on chip as an output driven high, the idle state
// of a pulled-up single-wire bus.
func NewCdevLine(chip string, pin int) (*CdevLine, error) {
	if chip == "" {
		chip = DefaultChip
	}
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	l, err := c.RequestLine(pin, gpiocdev.AsOutput(1), gpiocdev.WithPullUp)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}

	return &CdevLine{chip: c, line: l, dir: Output}, nil
}

// SetDirection reconfigures the line. Switching to OUTPUT drives it high.
func (c *CdevLine) SetDirection(d Direction) error {
	var err error
	switch d {
	case Output:
		err = c.line.Reconfigure(gpiocdev.AsOutput(1))
	case Input:
		err = c.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp)
	default:
		return fmt.Errorf("set direction: invalid %v", d)
	}
	if err != nil {
		return fmt.Errorf("set direction %v: %w", d, err)
	}
	c.dir = d
	return nil
}

func (c *CdevLine) SetLevel(l Level) error {
	if c.dir != Output {
		return errors.New("set level: line is not an output")
	}
	v := 0
	if l == High {
		v = 1
	}
	if err := c.line.SetValue(v); err != nil {
		return fmt.Errorf("set level %v: %w", l, err)
	}
	return nil
}

func (c *CdevLine) Level() (Level, error) {
	v, err := c.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read level: %w", err)
	}
	return Level(v != 0), nil
}

func (c *CdevLine) DelayMicroseconds(n int) {
	spin(n)
}

// Close leaves the line as an output driven high before releasing it, so
// the sensor sees an idle bus between runs.
func (c *CdevLine) Close() error {
	var errs []error
	if c.line != nil {
		if err := c.line.Reconfigure(gpiocdev.AsOutput(1)); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := c.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
