package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Errors.
var (
	ErrInvalidMessageID = errors.New("wire: message id 0 is reserved")
	ErrInvalidMethod    = errors.New("wire: invalid method")
	ErrMissingPayload   = errors.New("wire: missing payload")
	ErrEmptySSID        = errors.New("wire: empty ssid")
)

// Method identifies a session request.
type Method uint8

const (
	MethodConfigureWiFi Method = 1
	MethodConnect       Method = 2
	MethodOffboard      Method = 3
	MethodGetState      Method = 4
)

// IsValid reports whether m is a known method.
func (m Method) IsValid() bool {
	return m >= MethodConfigureWiFi && m <= MethodGetState
}

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodConfigureWiFi:
		return "CONFIGURE_WIFI"
	case MethodConnect:
		return "CONNECT"
	case MethodOffboard:
		return "OFFBOARD"
	case MethodGetState:
		return "GET_STATE"
	default:
		return "UNKNOWN"
	}
}

// Request is sent from controller to device.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32, nonzero
//	  2: method,     // uint8
//	  3: payload     // method-specific, optional
//	}
type Request struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Method    Method          `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return ErrInvalidMessageID
	}
	if !r.Method.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidMethod, r.Method)
	}
	return nil
}

// Response is sent from device to controller.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // matches the request
//	  2: status,     // uint8, 0 = success
//	  3: message,    // optional diagnostic text
//	  4: payload     // method-specific, optional
//	}
type Response struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Status    Status          `cbor:"2,keyasint"`
	Message   string          `cbor:"3,keyasint,omitempty"`
	Payload   cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// Err returns nil for a successful response and a *StatusError otherwise.
func (r *Response) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	return &StatusError{Status: r.Status, Message: r.Message}
}

// ConfigureWiFiPayload carries target network credentials.
type ConfigureWiFiPayload struct {
	SSID       string `cbor:"1,keyasint"`
	Passphrase string `cbor:"2,keyasint"` // hex encoded
	AuthType   int16  `cbor:"3,keyasint"`
}

// Validate checks the payload.
func (p *ConfigureWiFiPayload) Validate() error {
	if p.SSID == "" {
		return ErrEmptySSID
	}
	return nil
}

// ConfigureMode tells the controller how the device will switch networks.
type ConfigureMode int16

const (
	// ConfigureModeRegular means the device joins the target after Connect.
	ConfigureModeRegular ConfigureMode = 1

	// ConfigureModeFastSwitch means the device validated the credentials on
	// a second radio and will switch on Connect without a retry window.
	ConfigureModeFastSwitch ConfigureMode = 2
)

// ConfigureWiFiResult is the response payload of ConfigureWiFi.
type ConfigureWiFiResult struct {
	Mode ConfigureMode `cbor:"1,keyasint"`
}

// DeviceState is the onboarding state reported by a device.
type DeviceState uint8

const (
	DeviceNotConfigured DeviceState = iota
	DeviceConfiguredNotValidated
	DeviceConfiguredValidating
	DeviceConfiguredValidated
	DeviceConfiguredError
	DeviceConfiguredRetry
)

// String returns the state name.
func (s DeviceState) String() string {
	switch s {
	case DeviceNotConfigured:
		return "NOT_CONFIGURED"
	case DeviceConfiguredNotValidated:
		return "CONFIGURED_NOT_VALIDATED"
	case DeviceConfiguredValidating:
		return "CONFIGURED_VALIDATING"
	case DeviceConfiguredValidated:
		return "CONFIGURED_VALIDATED"
	case DeviceConfiguredError:
		return "CONFIGURED_ERROR"
	case DeviceConfiguredRetry:
		return "CONFIGURED_RETRY"
	default:
		return "UNKNOWN"
	}
}

// StatePayload is the response payload of GetState.
type StatePayload struct {
	State            DeviceState `cbor:"1,keyasint"`
	LastErrorCode    int16       `cbor:"2,keyasint,omitempty"`
	LastErrorMessage string      `cbor:"3,keyasint,omitempty"`
}
