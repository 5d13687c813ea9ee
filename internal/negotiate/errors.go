package negotiate

import (
	"errors"
	"fmt"
)

// Error codes for negotiation failures.
const (
	ErrCodeNoDevicesFound         = "NO_DEVICES_FOUND"
	ErrCodeNoSupportedModes       = "NO_SUPPORTED_MODES"
	ErrCodeDeviceResolutionFailed = "DEVICE_RESOLUTION_FAILED"
)

// ErrDeviceRemoved is returned when the capture device is unplugged while
// the player runs.
var ErrDeviceRemoved = errors.New("capture device removed")

// Error represents a negotiation failure with a code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
