package capture

import "errors"

// Sentinel acquisition errors. Platform adapters translate device failures
// to these so the interaction machine can pick the right recovery path:
// permission denial waits for an explicit user retry, everything else
// degrades the session.
var (
	// ErrPermissionDenied indicates the user (or OS policy) refused
	// microphone access. Recoverable only via an explicit retry.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")

	// ErrDeviceNotFound indicates no capture device is present.
	ErrDeviceNotFound = errors.New("capture: no microphone device found")

	// ErrDeviceUnsupported indicates the device cannot deliver a usable
	// format (e.g., no supported codec or sample rate).
	ErrDeviceUnsupported = errors.New("capture: microphone device unsupported")
)
