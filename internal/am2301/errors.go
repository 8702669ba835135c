package am2301

import "errors"

// Acquisition failures. All are recoverable by trying again on the next
// poll; none leaves the line in a non-idle state.
var (
	// ErrAckTimeout: the sensor did not pull the line low after the start pulse.
	ErrAckTimeout = errors.New("am2301: ack timeout")
	// ErrAckTimeout2: the sensor did not release the line high after the ack low.
	ErrAckTimeout2 = errors.New("am2301: ack timeout 2")
	// ErrBitTimeout: a data bit transition did not arrive in time.
	ErrBitTimeout = errors.New("am2301: bit timeout")
	// ErrEndTimeout: the end-of-frame low did not arrive in time.
	ErrEndTimeout = errors.New("am2301: end timeout")
	// ErrChecksumMismatch: the frame failed its integrity check.
	ErrChecksumMismatch = errors.New("am2301: checksum mismatch")
	// ErrLine: the GPIO driver reported an error.
	ErrLine = errors.New("am2301: line error")
	// ErrAborted: the acquisition was abandoned by its caller.
	ErrAborted = errors.New("am2301: acquisition aborted")
)

// FailureKind classifies an acquisition error for counters and payloads.
type FailureKind string

const (
	KindNone             FailureKind = ""
	KindAckTimeout       FailureKind = "ACK_TIMEOUT"
	KindAckTimeout2      FailureKind = "ACK_TIMEOUT_2"
	KindBitTimeout       FailureKind = "BIT_TIMEOUT"
	KindEndTimeout       FailureKind = "END_TIMEOUT"
	KindChecksumMismatch FailureKind = "CHECKSUM_MISMATCH"
	KindLineError        FailureKind = "LINE_ERROR"
	KindAborted          FailureKind = "ABORTED"
	KindUnknown          FailureKind = "UNKNOWN"
)

// Kind returns the failure kind of err, or KindNone for a nil error.
// ErrAborted takes precedence: an abandoned acquisition often also reports
// the line error its aborted operations produced.
func Kind(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAborted):
		return KindAborted
	case errors.Is(err, ErrAckTimeout):
		return KindAckTimeout
	case errors.Is(err, ErrAckTimeout2):
		return KindAckTimeout2
	case errors.Is(err, ErrBitTimeout):
		return KindBitTimeout
	case errors.Is(err, ErrEndTimeout):
		return KindEndTimeout
	case errors.Is(err, ErrChecksumMismatch):
		return KindChecksumMismatch
	case errors.Is(err, ErrLine):
		return KindLineError
	}
	return KindUnknown
}
