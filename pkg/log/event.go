package log

import (
	"time"

	"github.com/alljoyn/services-onboarding/pkg/wire"
)

// Event is one trace record. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the onboarding run or the configuration
	// session connection (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether this is a device or controller.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// DeviceID is the device identity, once known.
	DeviceID string `cbor:"8,keyasint,omitempty"`

	// Phase is the network phase the event concerns (ONBOARDEE, TARGET...).
	Phase string `cbor:"9,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame        *FrameEvent        `cbor:"10,keyasint,omitempty"`
	Message      *MessageEvent      `cbor:"11,keyasint,omitempty"`
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"`
	Announcement *AnnouncementEvent `cbor:"13,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"14,keyasint,omitempty"`
	Action       *ActionEvent       `cbor:"15,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	LayerTransport Layer = 0
	LayerWire      Layer = 1
	LayerEngine    Layer = 2
	LayerWiFi      Layer = 3
	LayerDiscovery Layer = 4
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerEngine:
		return "ENGINE"
	case LayerWiFi:
		return "WIFI"
	case LayerDiscovery:
		return "DISCOVERY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage      Category = 0
	CategoryState        Category = 1
	CategoryError        Category = 2
	CategoryAnnouncement Category = 3
	CategoryAction       Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryAnnouncement:
		return "ANNOUNCEMENT"
	case CategoryAction:
		return "ACTION"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local endpoint is a device or controller.
type Role uint8

const (
	RoleController Role = 0
	RoleDevice     Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleController:
		return "CONTROLLER"
	case RoleDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded session message.
type MessageEvent struct {
	// Response is false for requests.
	Response bool `cbor:"1,keyasint,omitempty"`

	// MessageID correlates request/response pairs.
	MessageID uint32 `cbor:"2,keyasint"`

	// Method of a request.
	Method *wire.Method `cbor:"3,keyasint,omitempty"`

	// Status of a response.
	Status *wire.Status `cbor:"4,keyasint,omitempty"`

	// RoundTrip is the time from request send to response receipt.
	RoundTrip *time.Duration `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures a lifecycle transition.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	StateEntityOnboarding StateEntity = 0
	StateEntityConnection StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityOnboarding:
		return "ONBOARDING"
	case StateEntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// AnnouncementEvent records an announcement and what the engine did with it.
type AnnouncementEvent struct {
	Instance string `cbor:"1,keyasint,omitempty"`
	Locator  string `cbor:"2,keyasint,omitempty"`
	Port     uint16 `cbor:"3,keyasint,omitempty"`

	// Accepted is true when the announcement advanced the run.
	Accepted bool `cbor:"4,keyasint,omitempty"`

	// Reason explains an ignored announcement.
	Reason string `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData captures an error.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Kind is the error classification (JOIN_TIMEOUT, ...).
	Kind string `cbor:"2,keyasint,omitempty"`

	// Message is the error message.
	Message string `cbor:"3,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// ActionEvent records a call into an external collaborator.
type ActionEvent struct {
	// Name of the action (JOIN, CONFIGURE, OFFBOARD, RESTORE).
	Name string `cbor:"1,keyasint"`

	// Target is what the action was aimed at (SSID, endpoint).
	Target string `cbor:"2,keyasint,omitempty"`

	// Duration of the call.
	Duration time.Duration `cbor:"3,keyasint,omitempty"`

	// Err is the failure, empty on success.
	Err string `cbor:"4,keyasint,omitempty"`
}
