package device

import "errors"

// Sentinel errors for the device package.
var (
	// ErrDeviceNotFound indicates the requested device does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists indicates a device with the same identifier already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidKind indicates an unrecognised device kind.
	ErrInvalidKind = errors.New("device: invalid kind")

	// ErrIdentifierRequired indicates an empty device identifier.
	ErrIdentifierRequired = errors.New("device: identifier required")
)
