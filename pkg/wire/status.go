package wire

import "fmt"

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the request completed.
	StatusSuccess Status = 0

	// StatusInvalidParameter indicates a malformed or out of range payload.
	StatusInvalidParameter Status = 1

	// StatusUnsupported indicates the method or auth type is not supported.
	StatusUnsupported Status = 2

	// StatusBusy indicates the device is busy; try again later.
	StatusBusy Status = 3

	// StatusNotConfigured indicates Connect was called before ConfigureWiFi.
	StatusNotConfigured Status = 4

	// StatusFailed indicates a device-side failure.
	StatusFailed Status = 5
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusBusy:
		return "BUSY"
	case StatusNotConfigured:
		return "NOT_CONFIGURED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// StatusError is a non-success response turned into an error.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("device returned %s", e.Status)
	}
	return fmt.Sprintf("device returned %s: %s", e.Status, e.Message)
}
