package capture

import "errors"

// Sentinel errors for audio capture.
var (
	// ErrPermissionDenied indicates the microphone could not be acquired
	// because access was refused.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")

	// ErrDeviceUnavailable indicates no usable input device was found.
	ErrDeviceUnavailable = errors.New("capture: audio device unavailable")

	// ErrClosed indicates the recorder or source was already closed.
	ErrClosed = errors.New("capture: closed")
)
