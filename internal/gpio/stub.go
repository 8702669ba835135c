//go:build !linux

package gpio

import "errors"

// Open is not available on non-Linux platforms.
func Open(driver, chip string, pin int) (Line, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}
