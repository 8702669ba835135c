// Package am2301 reads AM2301/DHT22-class humidity and temperature sensors
// over a single bit-banged GPIO line.
//
// This package has no logging and no retry policy. Each call to Acquire
// runs one complete acquisition cycle and returns a Reading or a typed
// error; cadence and retries belong to the caller.
package am2301

import "fmt"

// Frame is the 5-byte payload captured in one acquisition: humidity high,
// humidity low, temperature high, temperature low, checksum.
type Frame [5]byte

// signBit marks a negative temperature in the temperature-high byte.
const signBit = 0x80

// Checksum returns the truncated 8-bit sum of the payload bytes.
func Checksum(payload [4]byte) byte {
	return payload[0] + payload[1] + payload[2] + payload[3]
}

// Payload returns the first four bytes of the frame.
func (f Frame) Payload() [4]byte {
	return [4]byte{f[0], f[1], f[2], f[3]}
}

// Validate checks the frame's checksum byte.
func (f Frame) Validate() error {
	if want := Checksum(f.Payload()); f[4] != want {
		return fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrChecksumMismatch, f[4], want)
	}
	return nil
}

// Decode converts the frame into a Reading. It does not check the checksum;
// call Validate first.
func (f Frame) Decode() Reading {
	humidity := uint16(f[0])<<8 | uint16(f[1])

	hi := f[2]
	negative := hi&signBit != 0
	hi &^= signBit
	temp := int16(uint16(hi)<<8 | uint16(f[3]))
	if negative {
		temp = -temp
	}

	return Reading{Humidity: humidity, Temperature: temp}
}

// Validate reports whether frame carries a correct checksum.
func Validate(frame Frame) error {
	return frame.Validate()
}

// Decode validates frame and converts it into a Reading.
func Decode(frame Frame) (Reading, error) {
	if err := frame.Validate(); err != nil {
		return Reading{}, err
	}
	return frame.Decode(), nil
}

// Reading is a validated sensor measurement.
type Reading struct {
	// Humidity in tenths of a percent relative humidity.
	Humidity uint16
	// Temperature in tenths of a degree Celsius.
	Temperature int16
}

// HumidityPercent returns humidity in %RH.
func (r Reading) HumidityPercent() float64 {
	return float64(r.Humidity) / 10
}

// Celsius returns temperature in degrees Celsius.
func (r Reading) Celsius() float64 {
	return float64(r.Temperature) / 10
}

// String formats the reading as "65.2 %RH, 25.9 C".
func (r Reading) String() string {
	t := int(r.Temperature)
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	return fmt.Sprintf("%d.%d %%RH, %s%d.%d C", r.Humidity/10, r.Humidity%10, sign, t/10, t%10)
}
