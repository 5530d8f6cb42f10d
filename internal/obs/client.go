package obs

import "errors"

// Sentinel errors for control operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when a control operation is attempted
	// without an established connection.
	ErrNotConnected = errors.New("obs: not connected")

	// ErrConnectFailed is returned when a connection attempt fails.
	// This is the expected, common case while an instance is down.
	ErrConnectFailed = errors.New("obs: connection failed")

	// ErrAuthFailed is returned when the WebSocket handshake is rejected,
	// typically due to a wrong password.
	ErrAuthFailed = errors.New("obs: authentication failed")

	// ErrRequestFailed is returned when the instance rejects a request.
	ErrRequestFailed = errors.New("obs: request failed")
)

// Status is the instantaneous state of one OBS instance.
//
// Status is derived, never stored: every value is recomputed from live
// queries at the moment of the call. A stale "connected" is worse than a
// slow "disconnected".
type Status struct {
	Connected bool `json:"connected"`
	Streaming bool `json:"streaming"`
	Recording bool `json:"recording"`
}

// Client is the control capability for one OBS instance, consumed by the
// watchdog and the manual command surface.
//
// Every operation is independently fallible. Apart from Connect, whose
// failure is routine while the instance is down, implementations degrade
// to an error return or safe default; no operation panics.
type Client interface {
	// Connect establishes the control connection.
	Connect() error

	// Disconnect tears down the control connection. Safe to call when
	// not connected.
	Disconnect()

	// IsConnected actively verifies the connection with a round-trip,
	// never just a cached flag.
	IsConnected() bool

	// StartStreaming starts the stream output.
	StartStreaming() error

	// StopStreaming stops the stream output.
	StopStreaming() error

	// StartRecording starts the record output.
	StartRecording() error

	// StopRecording stops the record output.
	StopRecording() error

	// Status reports connected/streaming/recording, recomputed on demand.
	Status() Status
}
